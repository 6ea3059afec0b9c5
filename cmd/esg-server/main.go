package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/joelkehle/esg-scorecard/internal/config"
	"github.com/joelkehle/esg-scorecard/internal/httpapi"
	"github.com/joelkehle/esg-scorecard/internal/scorecard"
	"github.com/joelkehle/esg-scorecard/internal/store"
	"github.com/joelkehle/esg-scorecard/internal/telemetry"
)

func main() {
	cfg := config.Load()
	var (
		addr       = flag.String("addr", cfg.HTTPAddr, "Listen address")
		dbPath     = flag.String("db", cfg.DBPath, "Path to the SQLite database")
		signalsDir = flag.String("signals", cfg.SignalsDir, "Directory of per-company extraction artifacts")
		enablePDF  = flag.Bool("pdf", false, "Serve /v1/report?format=pdf through headless Chromium")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "esg-server", cfg.OTLPEndpoint)
	if err != nil {
		log.Printf("warning: tracing disabled: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	db, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store (%s): %v", *dbPath, err)
	}
	defer db.Close()

	var opts []httpapi.Option
	if *enablePDF {
		renderer, err := scorecard.NewChromiumPDFRenderer(cfg.PDFOptions())
		if err != nil {
			log.Fatalf("pdf renderer: %v", err)
		}
		opts = append(opts, httpapi.WithPDFRenderer(renderer))
	}
	handler := httpapi.NewServer(db, *signalsDir, opts...)

	log.Printf("esg-server listening on %s (db=%s)", *addr, *dbPath)
	srv := &http.Server{Addr: *addr, Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
