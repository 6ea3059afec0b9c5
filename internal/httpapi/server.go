// Package httpapi serves the latest scorecard, topic evidence packets and
// run manifest over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/esg"
	"github.com/joelkehle/esg-scorecard/internal/extract"
	"github.com/joelkehle/esg-scorecard/internal/scorecard"
)

// Store is the read side of the pipeline database.
type Store interface {
	Scorecard(ctx context.Context, company string) ([]esg.ScorecardRow, error)
	TopicPackets(ctx context.Context, topicID, company string) ([]esg.TopicPacket, error)
}

type Server struct {
	store      Store
	signalsDir string
	pdf        scorecard.PDFRenderer
	now        func() time.Time
}

type Option func(*Server)

// WithPDFRenderer enables format=pdf on /v1/report.
func WithPDFRenderer(r scorecard.PDFRenderer) Option {
	return func(s *Server) { s.pdf = r }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(store Store, signalsDir string, opts ...Option) http.Handler {
	s := &Server{store: store, signalsDir: signalsDir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.HandleFunc("/v1/scorecard", s.handleScorecard)
	mux.HandleFunc("/v1/scorecard.csv", s.handleScorecardCSV)
	mux.HandleFunc("/v1/report", s.handleReport)
	mux.HandleFunc("/v1/packets", s.handlePackets)
	mux.HandleFunc("/v1/runs/latest", s.handleLatestRun)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("esg-server request_failed path=%s err=%q", r.URL.Path, err.Error())
	writeError(w, http.StatusInternalServerError, "internal", "internal error")
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func companyParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("company"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleScorecard(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	rows, err := s.store.Scorecard(r.Context(), companyParam(r))
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	if rows == nil {
		rows = []esg.ScorecardRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(rows), "rows": rows})
}

func (s *Server) handleScorecardCSV(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	rows, err := s.store.Scorecard(r.Context(), companyParam(r))
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="esg_scorecard.csv"`)
	if err := scorecard.EncodeCSV(w, rows); err != nil {
		log.Printf("esg-server csv_write_failed err=%q", err.Error())
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	rows, err := s.store.Scorecard(r.Context(), companyParam(r))
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	md := scorecard.BuildMarkdown(rows, s.now())

	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "html":
		doc, err := scorecard.RenderHTML(md)
		if err != nil {
			writeInternal(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(doc))
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(md))
	case "pdf":
		if s.pdf == nil {
			writeError(w, http.StatusNotImplemented, "pdf_unavailable", "pdf rendering is not configured")
			return
		}
		pdf, err := s.pdf.Render(r.Context(), md)
		if err != nil {
			writeInternal(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	default:
		writeError(w, http.StatusBadRequest, "invalid_format", "format must be html, md or pdf")
	}
}

func (s *Server) handlePackets(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		writeError(w, http.StatusBadRequest, "missing_topic", "topic query parameter is required")
		return
	}
	packets, err := s.store.TopicPackets(r.Context(), topic, companyParam(r))
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	if packets == nil {
		packets = []esg.TopicPacket{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "topic_id": topic, "count": len(packets), "packets": packets})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	m, err := extract.LoadManifest(s.signalsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "no_run", "no extraction run recorded")
			return
		}
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "manifest": m})
}
