package scorecard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/esg"
	"github.com/joelkehle/esg-scorecard/internal/topics"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testBuilder() *Builder {
	b := NewBuilder(topics.New([]esg.Topic{{ID: "climate_energy", Name: "Climate & Energy"}}))
	b.Now = func() time.Time { return fixedNow }
	return b
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Zeta.json", `{"company":"Zeta","signals":[
		{"topic_id":"supply_chain","signal_type":"risk","severity":5},
		{"topic_id":"climate_energy","signal_type":"commitment","severity":5}
	]}`)
	writeFile(t, dir, "Acme.json", `{"signals":[
		{"topic_id":"climate_energy","signal_type":"risk","severity":5},
		{"topic_id":"climate_energy","signal_type":"commitment","severity":5},
		"junk"
	]}`)
	writeFile(t, dir, "Empty.json", `{"company":"Empty","signals":[]}`)
	writeFile(t, dir, "Acme_raw.txt", "raw text")
	writeFile(t, dir, "Bolt_invalid.txt", "nothing")
	writeFile(t, dir, "Old_raw.json", `{"company":"Old","signals":[{"topic_id":"x"}]}`)
	writeFile(t, dir, "_manifest.json", `{"run_id":"r","companies":[{"company":"M"}]}`)
	writeFile(t, dir, "Broken.json", `{"company":`)

	rows, err := testBuilder().BuildFromDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows=%d want 3: %+v", len(rows), rows)
	}
	want := []struct {
		company, topic, name string
		score                float64
	}{
		{"Acme", "climate_energy", "Climate & Energy", 2.5},
		{"Zeta", "climate_energy", "Climate & Energy", 3.4},
		{"Zeta", "supply_chain", "supply_chain", 2.1},
	}
	for i, w := range want {
		r := rows[i]
		if r.Company != w.company || r.TopicID != w.topic || r.TopicName != w.name || r.Score != w.score {
			t.Errorf("row %d = %+v, want %+v", i, r, w)
		}
		if !r.LastUpdated.Equal(fixedNow) {
			t.Errorf("row %d last_updated=%v", i, r.LastUpdated)
		}
	}
}

func TestBuildFromMissingDir(t *testing.T) {
	rows, err := testBuilder().BuildFromDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows=%v", rows)
	}
}

func TestBuildGroupsUnknownTopic(t *testing.T) {
	rows := testBuilder().Build([]esg.CompanyExtraction{{
		Company: "Acme",
		Signals: []map[string]any{{"signal_type": "metric", "severity": 4.0}, {"topic_id": nil}},
	}})
	if len(rows) != 1 || rows[0].TopicID != "unknown" || rows[0].TopicName != "unknown" {
		t.Fatalf("rows=%+v", rows)
	}
	// metric +0.2, default risk severity 3 adds nothing
	if rows[0].Score != 3.2 {
		t.Fatalf("score=%v", rows[0].Score)
	}
}
