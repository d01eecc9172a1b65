// internal/monitoring/dashboard.go
package monitoring

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healthmart/catalogsync/internal/report"
	"github.com/healthmart/catalogsync/internal/utils"
)

var dashLogger = utils.NewComponentLogger("dashboard")

// Dashboard serves run status and Prometheus metrics in serve mode.
type Dashboard struct {
	reportDir string
	startedAt time.Time
}

// NewDashboard creates a dashboard reading reports from reportDir.
func NewDashboard(reportDir string) *Dashboard {
	return &Dashboard{reportDir: reportDir, startedAt: time.Now()}
}

// Router builds the HTTP routes: health, latest runs, and /metrics.
func (d *Dashboard) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", d.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/runs", d.handleRuns).Methods(http.MethodGet)
	r.HandleFunc("/runs/latest", d.handleLatestRun).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(d.startedAt).Round(time.Second).String(),
	})
}

func (d *Dashboard) handleRuns(w http.ResponseWriter, _ *http.Request) {
	paths, err := report.ListReports(d.reportDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": paths})
}

func (d *Dashboard) handleLatestRun(w http.ResponseWriter, _ *http.Request) {
	paths, err := report.ListReports(d.reportDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(paths) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no runs recorded yet"})
		return
	}
	run, err := report.ReadJSON(paths[0])
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Serve blocks serving the dashboard on addr.
func (d *Dashboard) Serve(addr string) error {
	dashLogger.Infof("dashboard listening on %s", addr)
	server := &http.Server{
		Addr:         addr,
		Handler:      d.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return server.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
