package scorecard

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/esg"
)

func sampleRows() []esg.ScorecardRow {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []esg.ScorecardRow{
		{Company: "Acme", TopicID: "climate_energy", TopicName: "Climate & Energy", Score: 2.5,
			Rationale: "risk: a | commitment: b", KeyEvidence: `"Emissions, rose" (acme.pdf p12)`, LastUpdated: ts},
		{Company: "Acme", TopicID: "privacy_security", TopicName: "Privacy", Score: 3.0,
			Rationale: "metric: line one\nline two", LastUpdated: ts},
		{Company: "Zeta", TopicID: "supply_chain", TopicName: "supply_chain", Score: 5.0, LastUpdated: ts},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "esg_scorecard.csv")
	rows := sampleRows()
	if err := WriteCSV(path, rows); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(rows) {
		t.Fatalf("rows=%d want %d", len(got), len(rows))
	}
	for i := range rows {
		if !reflect.DeepEqual(got[i], rows[i]) {
			t.Fatalf("row %d:\n got %+v\nwant %+v", i, got[i], rows[i])
		}
	}
}

func TestCSVScoreFormatting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.csv")
	if err := WriteCSV(path, sampleRows()); err != nil {
		t.Fatal(err)
	}
	blob, _ := os.ReadFile(path)
	lines := strings.Split(string(blob), "\n")
	if lines[0] != strings.Join(esg.ScorecardColumns, ",") {
		t.Fatalf("header=%q", lines[0])
	}
	if !strings.Contains(string(blob), ",3.0,") || !strings.Contains(string(blob), ",5.0,") {
		t.Fatalf("scores should keep one decimal: %s", blob)
	}
}

func TestCSVEmptyWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.csv")
	if err := WriteCSV(path, nil); err != nil {
		t.Fatal(err)
	}
	blob, _ := os.ReadFile(path)
	if strings.TrimSpace(string(blob)) != strings.Join(esg.ScorecardColumns, ",") {
		t.Fatalf("unexpected content %q", blob)
	}
	rows, err := ReadCSV(path)
	if err != nil || len(rows) != 0 {
		t.Fatalf("rows=%v err=%v", rows, err)
	}
}

func TestReadCSVRejectsWrongHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.csv")
	if err := os.WriteFile(path, []byte("company,topic,score\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCSV(path); err == nil {
		t.Fatal("expected header error")
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.xlsx")
	rows := sampleRows()
	if err := SaveXLSX(path, rows); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := ReadXLSX(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(rows) {
		t.Fatalf("rows=%d want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i].Company != rows[i].Company || got[i].TopicID != rows[i].TopicID || got[i].Score != rows[i].Score {
			t.Fatalf("row %d: got %+v want %+v", i, got[i], rows[i])
		}
	}
}
