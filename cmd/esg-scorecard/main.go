package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joelkehle/esg-scorecard/internal/config"
	"github.com/joelkehle/esg-scorecard/internal/scorecard"
	"github.com/joelkehle/esg-scorecard/internal/store"
	"github.com/joelkehle/esg-scorecard/internal/topics"
)

func main() {
	cfg := config.Load()
	var (
		signalsDir = flag.String("signals", cfg.SignalsDir, "Directory of per-company extraction artifacts")
		topicsPath = flag.String("topics", cfg.TopicsPath, "Topic catalog YAML")
		csvPath    = flag.String("out", cfg.ScorecardCSV, "Scorecard CSV path")
		xlsxPath   = flag.String("xlsx", cfg.ScorecardXLSX, "Optional scorecard workbook path")
		mdPath     = flag.String("md", "", "Optional markdown report path")
		pdfPath    = flag.String("pdf", "", "Optional PDF report path (requires Chromium)")
		dbPath     = flag.String("db", cfg.DBPath, "SQLite database to mirror rows into (empty to skip)")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	catalog, err := topics.Load(*topicsPath)
	if err != nil {
		log.Fatal(err)
	}
	rows, err := scorecard.NewBuilder(catalog).BuildFromDir(*signalsDir)
	if err != nil {
		log.Fatal(err)
	}

	if err := scorecard.WriteCSV(*csvPath, rows); err != nil {
		log.Fatalf("write csv: %v", err)
	}
	if len(rows) == 0 {
		log.Printf("esg-scorecard no_rows signals_dir=%s hint=%q", *signalsDir, "check that the signal files contain signals with topic_id")
	} else {
		log.Printf("esg-scorecard saved path=%s rows=%d", *csvPath, len(rows))
	}

	if *xlsxPath != "" {
		if err := scorecard.SaveXLSX(*xlsxPath, rows); err != nil {
			log.Fatalf("write xlsx: %v", err)
		}
		log.Printf("esg-scorecard saved path=%s rows=%d", *xlsxPath, len(rows))
	}

	if *dbPath != "" {
		db, err := store.NewSQLiteStore(*dbPath)
		if err != nil {
			log.Fatalf("failed to open store (%s): %v", *dbPath, err)
		}
		defer db.Close()
		if err := db.ReplaceScorecard(ctx, rows); err != nil {
			log.Fatalf("save scorecard rows: %v", err)
		}
	}

	if *mdPath == "" && *pdfPath == "" {
		return
	}
	md := scorecard.BuildMarkdown(rows, time.Now())
	if *mdPath != "" {
		if err := os.WriteFile(*mdPath, []byte(md), 0o644); err != nil {
			log.Fatalf("write markdown: %v", err)
		}
	}
	if *pdfPath != "" {
		renderer, err := scorecard.NewChromiumPDFRenderer(cfg.PDFOptions())
		if err != nil {
			log.Fatalf("pdf renderer: %v", err)
		}
		pdf, err := renderer.Render(ctx, md)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
		log.Printf("esg-scorecard saved path=%s bytes=%d", *pdfPath, len(pdf))
	}
}
