// Package excel writes batch results as a spreadsheet report.
package excel

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/fundquant/internal/contracts"
	"github.com/wonny/fundquant/pkg/logger"
)

// SheetName is the single sheet of a report
const SheetName = "analysis"

// fixed columns in front of the metric schema
var fixedHeader = []string{
	"code", "name", "status", "error_kind",
	"start_date", "end_date", "point_count", "dropped_points",
}

// Writer implements contracts.RecordSink by writing one .xlsx per run
// ⭐ SSOT: 스프레드시트 출력은 여기서만
type Writer struct {
	dir    string
	logger *logger.Logger
}

// NewWriter creates a writer that stores reports under dir
func NewWriter(dir string, log *logger.Logger) *Writer {
	return &Writer{dir: dir, logger: log}
}

// FileName returns the report file name of a run
func FileName(result *contracts.BatchResult) string {
	runID := result.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	return fmt.Sprintf("fund_analysis_%s_%s.xlsx", result.StartedAt.Format("20060102_150405"), runID)
}

// SaveRecords implements contracts.RecordSink
func (w *Writer) SaveRecords(ctx context.Context, result *contracts.BatchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(w.dir, FileName(result))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := Write(f, result); err != nil {
		return err
	}

	w.logger.WithFields(map[string]interface{}{
		"run_id":  result.RunID,
		"path":    path,
		"records": len(result.Records),
	}).Info("Report exported")

	return f.Close()
}

// Write renders result as a workbook: header row frozen, one row per record,
// null metrics as empty cells.
func Write(out io.Writer, result *contracts.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, 0, len(fixedHeader)+len(result.Schema))
	for _, h := range fixedHeader {
		header = append(header, h)
	}
	for _, key := range result.Schema {
		header = append(header, key)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range result.Records {
		row := recordRow(rec, result.Schema)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %s: %w", rec.Code, err)
		}
	}

	// 헤더 고정
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func recordRow(rec contracts.AnalysisRecord, schema []string) []interface{} {
	row := make([]interface{}, 0, len(fixedHeader)+len(schema))
	row = append(row, rec.Code, rec.Name, string(rec.Status), rec.ErrorKind,
		formatDate(rec.StartDate), formatDate(rec.EndDate), rec.PointCount, rec.DroppedPoints)

	values := make(map[string]contracts.NullFloat, len(rec.Fields))
	for _, f := range rec.Fields {
		values[f.Key] = f.Value
	}
	for _, key := range schema {
		v, ok := values[key]
		if !ok || !v.Valid {
			row = append(row, nil)
			continue
		}
		row = append(row, v.Float64)
	}
	return row
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
