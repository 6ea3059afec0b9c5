package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/joelkehle/esg-scorecard/internal/config"
	"github.com/joelkehle/esg-scorecard/internal/ingest"
	"github.com/joelkehle/esg-scorecard/internal/store"
)

func main() {
	cfg := config.Load()
	var (
		rawDir = flag.String("raw-dir", cfg.RawDir, "Directory of <company>/<document> PDFs and HTML files")
		dbPath = flag.String("db", cfg.DBPath, "Path to the SQLite database")
	)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	db, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store (%s): %v", *dbPath, err)
	}
	defer db.Close()

	pages, err := ingest.ParseDir(*rawDir, cfg.MinPageChars)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.ReplacePages(ctx, pages); err != nil {
		log.Fatalf("save pages: %v", err)
	}
	log.Printf("esg-ingest pages_saved count=%d db=%s", len(pages), *dbPath)

	chunks := ingest.MakeChunks(pages, cfg.ChunkSize, cfg.ChunkOverlap)
	if err := db.ReplaceChunks(ctx, chunks); err != nil {
		log.Fatalf("save chunks: %v", err)
	}
	log.Printf("esg-ingest chunks_saved count=%d size=%d overlap=%d", len(chunks), cfg.ChunkSize, cfg.ChunkOverlap)
}
