// internal/report/report.go

// Package report accumulates per-run statistics and per-item outcomes
// and serializes them for postmortem triage. Reports are diagnostic
// artifacts only; the pipeline never reads them back.
package report

import (
	"fmt"
	"time"
)

// ItemStatus classifies one work item's outcome.
type ItemStatus string

const (
	StatusUpdated  ItemStatus = "updated"
	StatusSkipped  ItemStatus = "skipped"
	StatusNotFound ItemStatus = "not_found"
	StatusError    ItemStatus = "error"
)

// Item is one per-product outcome line.
type Item struct {
	SKU       string     `json:"sku,omitempty"`
	ProductID int64      `json:"product_id,omitempty"`
	URL       string     `json:"url,omitempty"`
	Status    ItemStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
	Images    int        `json:"images,omitempty"`
}

// Run aggregates one pipeline execution.
type Run struct {
	Name       string    `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	NotFound   int       `json:"not_found"`
	Errors     int       `json:"errors"`
	Items      []Item    `json:"items"`
}

// NewRun starts a report for the named pipeline.
func NewRun(name string) *Run {
	return &Run{Name: name, StartedAt: time.Now()}
}

// Record appends one item outcome and bumps the matching counter.
func (r *Run) Record(item Item) {
	r.Processed++
	switch item.Status {
	case StatusUpdated:
		r.Updated++
	case StatusSkipped:
		r.Skipped++
	case StatusNotFound:
		r.NotFound++
	case StatusError:
		r.Errors++
	}
	r.Items = append(r.Items, item)
}

// Finish stamps the completion time.
func (r *Run) Finish() {
	r.FinishedAt = time.Now()
}

// Summary renders the human-readable counts table printed at the end of
// a run.
func (r *Run) Summary() string {
	dur := r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
	return fmt.Sprintf(
		"%s: processed=%d updated=%d skipped=%d not_found=%d errors=%d duration=%s",
		r.Name, r.Processed, r.Updated, r.Skipped, r.NotFound, r.Errors, dur)
}
