package scorecard

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/esg"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Scorecard"

// WriteXLSX renders rows as a single-sheet workbook with the CSV column order.
func WriteXLSX(w io.Writer, rows []esg.ScorecardRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, len(esg.ScorecardColumns))
	for i, c := range esg.ScorecardColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("set header: %w", err)
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.Company,
			r.TopicID,
			r.TopicName,
			r.Score,
			r.Rationale,
			r.KeyEvidence,
			r.LastUpdated.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("set row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(xlsxSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return f.Write(w)
}

// SaveXLSX writes the workbook to path, replacing any previous file.
func SaveXLSX(path string, rows []esg.ScorecardRow) error {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, rows); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadXLSX loads rows from a workbook produced by WriteXLSX.
func ReadXLSX(r io.Reader) ([]esg.ScorecardRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := f.GetRows(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read sheet: missing header")
	}
	if err := checkHeader(records[0]); err != nil {
		return nil, err
	}
	rows := make([]esg.ScorecardRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		// GetRows trims trailing empty cells.
		for len(rec) < len(esg.ScorecardColumns) {
			rec = append(rec, "")
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("sheet row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
