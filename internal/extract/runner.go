package extract

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joelkehle/esg-scorecard/internal/esg"
	"github.com/joelkehle/esg-scorecard/internal/retrieve"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTopChunks    = 8
	DefaultChunkCharCap = 700
)

var tracer = otel.Tracer("github.com/joelkehle/esg-scorecard/internal/extract")

// RunConfig bounds excerpt selection for each company prompt.
type RunConfig struct {
	Keywords     []string
	TopChunks    int
	ChunkCharCap int
	Provider     string
}

func (c RunConfig) withDefaults() RunConfig {
	if len(c.Keywords) == 0 {
		c.Keywords = retrieve.ESGKeywords
	}
	if c.TopChunks <= 0 {
		c.TopChunks = DefaultTopChunks
	}
	if c.ChunkCharCap <= 0 {
		c.ChunkCharCap = DefaultChunkCharCap
	}
	return c
}

// CompanyResult is the manifest entry for one company.
type CompanyResult struct {
	Company      string       `json:"company"`
	Outcome      Outcome      `json:"outcome"`
	Signals      int          `json:"signals"`
	Error        string       `json:"error,omitempty"`
	ErrorClass   FailureClass `json:"error_class,omitempty"`
	ElapsedMilli int64        `json:"elapsed_ms"`
}

// Manifest summarizes one extraction run.
type Manifest struct {
	RunID       string          `json:"run_id"`
	Provider    string          `json:"provider,omitempty"`
	Model       string          `json:"model"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	Canceled    bool            `json:"canceled,omitempty"`
	Companies   []CompanyResult `json:"companies"`
}

// Failures returns the companies whose outcome is a terminal failure.
func (m Manifest) Failures() []CompanyResult {
	var out []CompanyResult
	for _, c := range m.Companies {
		if c.Outcome.Failed() {
			out = append(out, c)
		}
	}
	return out
}

// Runner drives one model call per company, one company at a time.
type Runner struct {
	gen       Generator
	artifacts *Artifacts
	cfg       RunConfig
}

func NewRunner(gen Generator, artifacts *Artifacts, cfg RunConfig) *Runner {
	return &Runner{gen: gen, artifacts: artifacts, cfg: cfg.withDefaults()}
}

// Run processes every company found in chunks in ascending name order. Per
// company failures are recorded in the manifest; only cancellation stops the
// run, and only between companies.
func (r *Runner) Run(ctx context.Context, chunks []esg.ChunkRecord) (Manifest, error) {
	companies, groups := retrieve.GroupByCompany(chunks)
	m := Manifest{
		RunID:     uuid.NewString(),
		Provider:  r.cfg.Provider,
		Model:     r.gen.ModelName(),
		StartedAt: time.Now().UTC(),
		Companies: make([]CompanyResult, 0, len(companies)),
	}
	log.Printf("esg-extract run_start run_id=%s companies=%d model=%s", m.RunID, len(companies), m.Model)

	var runErr error
	for i, company := range companies {
		if err := ctx.Err(); err != nil {
			m.Canceled = true
			runErr = err
			log.Printf("esg-extract run_canceled run_id=%s processed=%d remaining=%d", m.RunID, i, len(companies)-i)
			break
		}
		res := r.ProcessCompany(ctx, company, groups[company])
		m.Companies = append(m.Companies, res)
	}
	m.CompletedAt = time.Now().UTC()
	if err := r.artifacts.WriteManifest(m); err != nil {
		return m, fmt.Errorf("write manifest: %w", err)
	}
	log.Printf("esg-extract run_done run_id=%s companies=%d failures=%d", m.RunID, len(m.Companies), len(m.Failures()))
	return m, runErr
}

// ProcessCompany produces exactly one artifact class for company.
func (r *Runner) ProcessCompany(ctx context.Context, company string, chunks []esg.ChunkRecord) CompanyResult {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "extract.company", trace.WithAttributes(
		attribute.String("esg.company", company),
		attribute.Int("esg.chunks", len(chunks)),
	))
	defer span.End()

	res := r.processCompany(ctx, company, chunks)
	res.ElapsedMilli = time.Since(started).Milliseconds()
	span.SetAttributes(attribute.String("esg.outcome", string(res.Outcome)), attribute.Int("esg.signals", res.Signals))
	if res.Outcome.Failed() {
		span.SetStatus(codes.Error, res.Error)
	}
	log.Printf("esg-extract company_done company=%q outcome=%s signals=%d elapsed_ms=%d", company, res.Outcome, res.Signals, res.ElapsedMilli)
	return res
}

func (r *Runner) processCompany(ctx context.Context, company string, chunks []esg.ChunkRecord) CompanyResult {
	res := CompanyResult{Company: company}
	if err := r.artifacts.Clear(company); err != nil {
		log.Printf("esg-extract clear_failed company=%q err=%q", company, err.Error())
	}

	excerpts := retrieve.CompanyExcerpts(chunks, r.cfg.Keywords, r.cfg.TopChunks, r.cfg.ChunkCharCap)
	if strings.TrimSpace(excerpts) == "" {
		res.Outcome = OutcomeEmpty
		if err := r.artifacts.WriteExtraction(esg.CompanyExtraction{Company: company, Signals: []map[string]any{}}, company); err != nil {
			return r.writeFailed(res, err)
		}
		return res
	}

	raw, err := r.generate(ctx, BuildPrompt(company, excerpts))
	if err != nil {
		cerr := &CompanyError{Company: company, Outcome: OutcomeServiceFailure, Err: err}
		res.Outcome = OutcomeServiceFailure
		res.Error = cerr.Error()
		res.ErrorClass = classifyTransportError(err)
		if werr := r.artifacts.WriteRaw(company, fmt.Sprintf("ERROR calling model: %v", err)); werr != nil {
			log.Printf("esg-extract write_failed company=%q artifact=raw err=%q", company, werr.Error())
		}
		return res
	}
	if err := r.artifacts.WriteRaw(company, raw); err != nil {
		log.Printf("esg-extract write_failed company=%q artifact=raw err=%q", company, err.Error())
	}

	data, ok := ParseResponse(raw)
	if !ok {
		cerr := &CompanyError{Company: company, Outcome: OutcomeInvalid, Err: errNoStructure}
		res.Outcome = OutcomeInvalid
		res.Error = cerr.Error()
		if err := r.artifacts.WriteInvalid(company, raw); err != nil {
			log.Printf("esg-extract write_failed company=%q artifact=invalid err=%q", company, err.Error())
		}
		return res
	}

	ext := RepairExtraction(data, company)
	res.Outcome = OutcomeJSON
	res.Signals = len(ext.Signals)
	if err := r.artifacts.WriteExtraction(ext, company); err != nil {
		return r.writeFailed(res, err)
	}
	return res
}

func (r *Runner) generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "extract.generate", trace.WithAttributes(
		attribute.String("llm.model", r.gen.ModelName()),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))
	defer span.End()
	raw, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(classifyTransportError(err)))
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.response_chars", len(raw)))
	return raw, nil
}

// writeFailed records a local write error; the outcome is kept so the cause stays visible.
func (r *Runner) writeFailed(res CompanyResult, err error) CompanyResult {
	log.Printf("esg-extract write_failed company=%q artifact=json err=%q", res.Company, err.Error())
	res.Error = fmt.Sprintf("write artifact: %v", err)
	return res
}
