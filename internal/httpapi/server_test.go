package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/esg"
	"github.com/joelkehle/esg-scorecard/internal/extract"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	rows    []esg.ScorecardRow
	packets []esg.TopicPacket
	err     error
}

func (f *fakeStore) Scorecard(_ context.Context, company string) ([]esg.ScorecardRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []esg.ScorecardRow
	for _, r := range f.rows {
		if company == "" || r.Company == company {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) TopicPackets(_ context.Context, topicID, company string) ([]esg.TopicPacket, error) {
	var out []esg.TopicPacket
	for _, p := range f.packets {
		if p.TopicID == topicID && (company == "" || p.Company == company) {
			out = append(out, p)
		}
	}
	return out, f.err
}

type fakePDF struct{}

func (fakePDF) Render(_ context.Context, md string) ([]byte, error) {
	return []byte("%PDF-" + md[:5]), nil
}

func newTestStore() *fakeStore {
	return &fakeStore{
		rows: []esg.ScorecardRow{
			{Company: "Acme", TopicID: "climate_energy", TopicName: "Climate", Score: 2.5, Rationale: "risk: x", LastUpdated: fixedNow},
			{Company: "Bolt", TopicID: "supply_chain", TopicName: "Supply", Score: 3.0, LastUpdated: fixedNow},
		},
		packets: []esg.TopicPacket{
			{TopicID: "climate_energy", ChunkRecord: esg.ChunkRecord{Company: "Acme", SourceFile: "a.pdf", Page: 3, ChunkText: "emissions"}, KeywordScore: 4},
		},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealth(t *testing.T) {
	h := NewServer(newTestStore(), t.TempDir())
	rr := get(t, h, "/v1/health")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok":true`) {
		t.Fatalf("health=%d %s", rr.Code, rr.Body.String())
	}
	post := httptest.NewRecorder()
	h.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/v1/health", nil))
	if post.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST health=%d", post.Code)
	}
}

func TestScorecardJSON(t *testing.T) {
	h := NewServer(newTestStore(), t.TempDir())
	rr := get(t, h, "/v1/scorecard?company=Acme")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var body struct {
		OK   bool               `json:"ok"`
		Rows []esg.ScorecardRow `json:"rows"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.OK || len(body.Rows) != 1 || body.Rows[0].Score != 2.5 {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	empty := get(t, h, "/v1/scorecard?company=Nobody")
	if !strings.Contains(empty.Body.String(), `"rows":[]`) {
		t.Fatalf("empty scorecard should be a list: %s", empty.Body.String())
	}
}

func TestScorecardStoreError(t *testing.T) {
	h := NewServer(&fakeStore{err: errors.New("disk gone")}, t.TempDir())
	rr := get(t, h, "/v1/scorecard")
	if rr.Code != http.StatusInternalServerError || strings.Contains(rr.Body.String(), "disk gone") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestScorecardCSV(t *testing.T) {
	h := NewServer(newTestStore(), t.TempDir())
	rr := get(t, h, "/v1/scorecard.csv")
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content-type=%q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 3 || lines[0] != strings.Join(esg.ScorecardColumns, ",") {
		t.Fatalf("unexpected csv %q", rr.Body.String())
	}
	if !strings.HasPrefix(lines[1], "Acme,climate_energy,Climate,2.5,") {
		t.Fatalf("row=%q", lines[1])
	}
}

func TestReportFormats(t *testing.T) {
	h := NewServer(newTestStore(), t.TempDir(), WithClock(func() time.Time { return fixedNow }))

	html := get(t, h, "/v1/report")
	if !strings.HasPrefix(html.Header().Get("Content-Type"), "text/html") || !strings.Contains(html.Body.String(), "<table>") {
		t.Fatalf("html report: %s", html.Body.String())
	}
	md := get(t, h, "/v1/report?format=md")
	if !strings.Contains(md.Body.String(), "Generated 2026-03-01T12:00:00Z") {
		t.Fatalf("markdown report: %s", md.Body.String())
	}
	if rr := get(t, h, "/v1/report?format=pdf"); rr.Code != http.StatusNotImplemented {
		t.Fatalf("pdf without renderer=%d", rr.Code)
	}
	if rr := get(t, h, "/v1/report?format=docx"); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad format=%d", rr.Code)
	}

	withPDF := NewServer(newTestStore(), t.TempDir(), WithPDFRenderer(fakePDF{}))
	rr := get(t, withPDF, "/v1/report?format=pdf")
	if rr.Header().Get("Content-Type") != "application/pdf" || !strings.HasPrefix(rr.Body.String(), "%PDF-# ESG") {
		t.Fatalf("pdf report: %q", rr.Body.String())
	}
}

func TestPackets(t *testing.T) {
	h := NewServer(newTestStore(), t.TempDir())
	if rr := get(t, h, "/v1/packets"); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing topic=%d", rr.Code)
	}
	rr := get(t, h, "/v1/packets?topic=climate_energy")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"kw_score":4`) {
		t.Fatalf("packets=%d %s", rr.Code, rr.Body.String())
	}
}

func TestLatestRun(t *testing.T) {
	dir := t.TempDir()
	h := NewServer(newTestStore(), dir)
	if rr := get(t, h, "/v1/runs/latest"); rr.Code != http.StatusNotFound {
		t.Fatalf("no manifest=%d", rr.Code)
	}

	art, err := extract.NewArtifacts(dir)
	if err != nil {
		t.Fatal(err)
	}
	m := extract.Manifest{RunID: "run-1", Model: "phi3:mini", Companies: []extract.CompanyResult{{Company: "Acme", Outcome: extract.OutcomeJSON, Signals: 3}}}
	if err := art.WriteManifest(m); err != nil {
		t.Fatal(err)
	}
	rr := get(t, h, "/v1/runs/latest")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"run_id":"run-1"`) {
		t.Fatalf("latest run=%d %s", rr.Code, rr.Body.String())
	}
}
