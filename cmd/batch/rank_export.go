// Command batch runs one full export pass over the rank ledger, feeding
// every deduplicated (user, place, keyword) group back to the crawling
// server in paced chunks. Cron runs it once a day at 08:00 in the
// reference timezone.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ezrank_service/internal/app/config"
	"ezrank_service/internal/app/db"
	"ezrank_service/internal/app/repository"
	"ezrank_service/internal/app/service"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fatal: failed to load configuration: %v", err)
	}

	dbConn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Fatal: failed to connect to database: %v", err)
	}

	rankRepo := repository.NewRankRepository(dbConn)
	export := service.NewExportService(rankRepo, service.ExportConfig{
		Endpoint:  cfg.CrawlServerURL,
		ChunkSize: cfg.ExportChunkSize,
		Pacing:    cfg.ExportPacing,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	msg, err := export.ExportAll(ctx)
	if err != nil {
		log.Fatalf("ERROR: export failed: %v", err)
	}
	log.Printf("INFO: %s (took %s)", msg, time.Since(start).Round(time.Second))
}
