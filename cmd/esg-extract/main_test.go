package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/esg"
	"github.com/joelkehle/esg-scorecard/internal/extract"
	"github.com/joelkehle/esg-scorecard/internal/store"
)

func seedChunks(t *testing.T, dbPath string) {
	t.Helper()
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = db.ReplaceChunks(context.Background(), []esg.ChunkRecord{
		{Company: "Acme", SourceFile: "acme.pdf", Page: 1, ChunkID: 0, ChunkText: "Climate risk and emissions targets."},
		{Company: "Bolt", SourceFile: "bolt.pdf", Page: 1, ChunkID: 1, ChunkText: "Data privacy and cybersecurity controls."},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRunInterruptedFlushesSpans(t *testing.T) {
	var exports atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exports.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer ollama.Close()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "esg.db")
	signalsDir := filepath.Join(dir, "signals")
	seedChunks(t, dbPath)

	t.Setenv("ESG_LLM_PROVIDER", extract.ProviderOllama)
	t.Setenv("OLLAMA_URL", ollama.URL)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", collector.URL)

	if code := run(ctx, []string{"-db", dbPath, "-out", signalsDir}); code != 130 {
		t.Fatalf("exit code = %d, want 130", code)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one model call before the interrupt, got %d", n)
	}
	if exports.Load() == 0 {
		t.Fatal("spans were not exported before exit")
	}

	m, err := extract.LoadManifest(signalsDir)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if !m.Canceled || len(m.Companies) != 1 || m.Companies[0].Company != "Acme" {
		t.Fatalf("unexpected manifest %+v", m)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	if code := run(context.Background(), []string{"-nope"}); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
