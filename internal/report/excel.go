// internal/report/excel.go
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// WriteExcel exports the run as an .xlsx workbook with a summary sheet
// and a per-item outcomes sheet, for triage by non-developers.
func WriteExcel(r *Run, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", fmt.Errorf("failed to rename summary sheet: %w", err)
	}

	summaryRows := [][]interface{}{
		{"Run", r.Name},
		{"Started", r.StartedAt.Format("2006-01-02 15:04:05")},
		{"Finished", r.FinishedAt.Format("2006-01-02 15:04:05")},
		{"Processed", r.Processed},
		{"Updated", r.Updated},
		{"Skipped", r.Skipped},
		{"Not found", r.NotFound},
		{"Errors", r.Errors},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	const itemsSheet = "Items"
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return "", fmt.Errorf("failed to create items sheet: %w", err)
	}

	header := []interface{}{"SKU", "Product ID", "URL", "Status", "Message", "Images"}
	if err := f.SetSheetRow(itemsSheet, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write items header: %w", err)
	}
	for i, item := range r.Items {
		row := []interface{}{item.SKU, item.ProductID, item.URL, string(item.Status), item.Message, item.Images}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(itemsSheet, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write item row: %w", err)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.xlsx", r.Name, r.StartedAt.Format("20060102-150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}
