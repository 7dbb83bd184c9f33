package main

import (
	"fmt"
	"os"

	"portal-scraper/config"
	"portal-scraper/scraper/portal"
	"portal-scraper/services"
	"portal-scraper/storage"
	"portal-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Portal Inmobiliario Scraping System starting ===")
	logger.Info("Config — pages: %d | listings: %d | rate: %d/min | delay: %.0f–%.0fs | batch: %d",
		cfg.MaxPagesPerSession, cfg.MaxListingsPerSession, cfg.MaxRequestsPerMinute,
		cfg.MinDelaySeconds, cfg.MaxDelaySeconds, cfg.BatchSaveSize)

	jsonWriter, err := storage.NewJSONWriter(cfg.OutputDir)
	if err != nil {
		logger.Error("Failed to create JSON writer: %v", err)
		os.Exit(1)
	}
	defer jsonWriter.Close()

	var gateway storage.Gateway
	if cfg.UsePersistentStore {
		pg, err := storage.NewPostgresGateway(cfg.DSN())
		if err != nil {
			logger.Error("PostgreSQL unavailable, continuing with in-memory store: %v", err)
			gateway = storage.NewMemoryGateway()
		} else {
			gateway = pg
		}
	} else {
		logger.Info("Persistent store disabled — results go to JSON files only")
		gateway = storage.NewMemoryGateway()
	}
	defer gateway.Close()

	scraper := portal.New(cfg, logger, gateway, jsonWriter)
	records, stats, err := scraper.Run()
	if err != nil {
		logger.Error("Scrape failed: %v", err)
		os.Exit(1)
	}

	logger.Info("Scrape finished — %d pages, %d discovered, %d/%d enriched (%d failed)",
		stats.PagesScraped, stats.Discovered, stats.Succeeded, stats.Attempted, stats.Failed)
	if stats.Blocked {
		logger.Warn("Run ended on a blocking page — see diagnostic dump in %s", cfg.OutputDir)
	}
	if stats.BreakerFired {
		logger.Warn("Enrichment was aborted early by the failure-rate circuit breaker")
	}

	if len(records) == 0 {
		logger.Error("No properties were collected. Exiting.")
		os.Exit(1)
	}

	storeStats, err := gateway.AggregateStats()
	if err != nil {
		logger.Error("Could not compute store statistics: %v", err)
		storeStats = nil
	}

	insightSvc := services.NewInsightService(logger)
	report := insightSvc.Generate(records, storeStats)
	insightSvc.Print(report)

	fmt.Printf("  Done. Full export written to %s\n\n", jsonWriter.ExportPath())
}
