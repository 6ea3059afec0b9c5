package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/joelkehle/esg-scorecard/internal/config"
	"github.com/joelkehle/esg-scorecard/internal/retrieve"
	"github.com/joelkehle/esg-scorecard/internal/store"
	"github.com/joelkehle/esg-scorecard/internal/topics"
)

func main() {
	cfg := config.Load()
	var (
		dbPath     = flag.String("db", cfg.DBPath, "Path to the SQLite database")
		topicsPath = flag.String("topics", cfg.TopicsPath, "Topic catalog YAML")
		limit      = flag.Int("limit", cfg.PacketLimit, "Chunks kept per company per topic")
	)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	catalog, err := topics.Load(*topicsPath)
	if err != nil {
		log.Fatal(err)
	}
	if len(catalog.Topics()) == 0 {
		log.Fatalf("no topics found in %s", *topicsPath)
	}

	db, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store (%s): %v", *dbPath, err)
	}
	defer db.Close()

	chunks, err := db.Chunks(ctx, "")
	if err != nil {
		log.Fatal(err)
	}
	counts, err := retrieve.BuildTopicPackets(ctx, chunks, catalog.Topics(), *limit, db)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("esg-packets done topics=%d chunks=%d", len(counts), len(chunks))
}
