package scorecard

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

// FormatScore renders a score with exactly one decimal place.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func rowRecord(r esg.ScorecardRow) []string {
	return []string{
		r.Company,
		r.TopicID,
		r.TopicName,
		FormatScore(r.Score),
		r.Rationale,
		r.KeyEvidence,
		r.LastUpdated.UTC().Format(time.RFC3339),
	}
}

// EncodeCSV writes the header and rows to w.
func EncodeCSV(w io.Writer, rows []esg.ScorecardRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(esg.ScorecardColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(rowRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV replaces the file at path with the header and rows. An empty row
// set still produces the header.
func WriteCSV(path string, rows []esg.ScorecardRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create scorecard dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create scorecard: %w", err)
	}
	if err := EncodeCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write scorecard: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadCSV loads a scorecard written by WriteCSV.
func ReadCSV(path string) ([]esg.ScorecardRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse scorecard: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse scorecard: missing header")
	}
	if err := checkHeader(records[0]); err != nil {
		return nil, err
	}
	rows := make([]esg.ScorecardRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("scorecard line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func checkHeader(h []string) error {
	if len(h) != len(esg.ScorecardColumns) {
		return fmt.Errorf("scorecard header has %d columns, want %d", len(h), len(esg.ScorecardColumns))
	}
	for i, c := range esg.ScorecardColumns {
		if h[i] != c {
			return fmt.Errorf("scorecard column %d is %q, want %q", i, h[i], c)
		}
	}
	return nil
}

func parseRecord(rec []string) (esg.ScorecardRow, error) {
	score, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return esg.ScorecardRow{}, fmt.Errorf("score: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, rec[6])
	if err != nil {
		return esg.ScorecardRow{}, fmt.Errorf("last_updated: %w", err)
	}
	return esg.ScorecardRow{
		Company:     rec[0],
		TopicID:     rec[1],
		TopicName:   rec[2],
		Score:       score,
		Rationale:   rec[4],
		KeyEvidence: rec[5],
		LastUpdated: ts,
	}, nil
}
