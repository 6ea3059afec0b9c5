package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joelkehle/esg-scorecard/internal/config"
	"github.com/joelkehle/esg-scorecard/internal/extract"
	"github.com/joelkehle/esg-scorecard/internal/store"
	"github.com/joelkehle/esg-scorecard/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run returns the process exit code so deferred cleanup, including the span
// flush, happens before exit.
func run(ctx context.Context, args []string) int {
	cfg := config.Load()
	fs := flag.NewFlagSet("esg-extract", flag.ContinueOnError)
	var (
		dbPath     = fs.String("db", cfg.DBPath, "Path to the SQLite database")
		signalsDir = fs.String("out", cfg.SignalsDir, "Directory for per-company extraction artifacts")
		company    = fs.String("company", "", "Only extract this company")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid config: %v", err)
		return 1
	}

	shutdown, err := telemetry.Setup(ctx, "esg-extract", cfg.OTLPEndpoint)
	if err != nil {
		log.Printf("warning: tracing disabled: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	gen, err := extract.NewGenerator(cfg.ModelConfig())
	if err != nil {
		log.Print(err)
		return 1
	}
	artifacts, err := extract.NewArtifacts(*signalsDir)
	if err != nil {
		log.Print(err)
		return 1
	}

	db, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Printf("failed to open store (%s): %v", *dbPath, err)
		return 1
	}
	defer db.Close()

	chunks, err := db.Chunks(ctx, *company)
	if err != nil {
		log.Print(err)
		return 1
	}
	if len(chunks) == 0 {
		log.Printf("esg-extract no_chunks db=%s company=%q", *dbPath, *company)
	}

	runner := extract.NewRunner(gen, artifacts, cfg.RunConfig())
	m, err := runner.Run(ctx, chunks)
	for _, f := range m.Failures() {
		log.Printf("esg-extract company_failed company=%q outcome=%s class=%s err=%q", f.Company, f.Outcome, f.ErrorClass, f.Error)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("esg-extract interrupted run_id=%s", m.RunID)
			return 130
		}
		log.Print(err)
		return 1
	}
	return 0
}
