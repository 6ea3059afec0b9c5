package scorecard

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/esg"
	"github.com/joelkehle/esg-scorecard/internal/extract"
	"github.com/joelkehle/esg-scorecard/internal/topics"
)

// Builder turns extraction artifacts into scorecard rows.
type Builder struct {
	Catalog *topics.Catalog
	// Now stamps last_updated; defaults to time.Now in UTC.
	Now func() time.Time
}

func NewBuilder(catalog *topics.Catalog) *Builder {
	if catalog == nil {
		catalog = topics.New(nil)
	}
	return &Builder{Catalog: catalog}
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC().Truncate(time.Second)
}

// Build scores every observed (company, topic) pair. Topics are taken from
// the signals themselves, not the catalog, so companies without signals
// produce no rows.
func (b *Builder) Build(extractions []esg.CompanyExtraction) []esg.ScorecardRow {
	stamp := b.now()
	rows := []esg.ScorecardRow{}
	for _, ext := range extractions {
		byTopic := map[string][]esg.NormalizedSignal{}
		for _, s := range NormalizeAll(ext.Signals) {
			byTopic[s.TopicID] = append(byTopic[s.TopicID], s)
		}
		ids := make([]string, 0, len(byTopic))
		for id := range byTopic {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			ts := ScoreTopic(byTopic[id])
			rows = append(rows, esg.ScorecardRow{
				Company:     ext.Company,
				TopicID:     id,
				TopicName:   b.Catalog.DisplayName(id),
				Score:       ts.Score,
				Rationale:   ts.Rationale,
				KeyEvidence: ts.KeyEvidence,
				LastUpdated: stamp,
			})
		}
	}
	SortRows(rows)
	return rows
}

// BuildFromDir loads every extraction in dir and builds the scorecard.
func (b *Builder) BuildFromDir(dir string) ([]esg.ScorecardRow, error) {
	exts, err := LoadExtractions(dir)
	if err != nil {
		return nil, err
	}
	return b.Build(exts), nil
}

// SortRows orders rows by (company, topic_id).
func SortRows(rows []esg.ScorecardRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Company != rows[j].Company {
			return rows[i].Company < rows[j].Company
		}
		return rows[i].TopicID < rows[j].TopicID
	})
}

// LoadExtractions reads the structured extraction artifacts in dir in file
// name order. Raw and invalid text artifacts and the run manifest are
// ignored. A file that does not decode is logged and skipped.
func LoadExtractions(dir string) ([]esg.CompanyExtraction, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read signals dir: %w", err)
	}
	var out []esg.CompanyExtraction
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isExtractionFile(name) {
			continue
		}
		blob, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var data map[string]any
		if err := json.Unmarshal(blob, &data); err != nil || data == nil {
			log.Printf("esg-scorecard skip_file file=%s reason=%q", name, "not a JSON object")
			continue
		}
		out = append(out, extract.RepairExtraction(data, strings.TrimSuffix(name, ".json")))
	}
	return out, nil
}

func isExtractionFile(name string) bool {
	return strings.HasSuffix(name, ".json") &&
		!strings.HasSuffix(name, "_raw.json") &&
		name != extract.ManifestFile
}
