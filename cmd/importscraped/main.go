package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/username/insiderflow/src/config"
	"github.com/username/insiderflow/src/database"
	"github.com/username/insiderflow/src/ingest"
	"github.com/username/insiderflow/src/logger"
	"github.com/username/insiderflow/src/parsers"
	"github.com/username/insiderflow/src/processors"
)

const verifyLatest = 5

// importscraped merges the most recent scraper output into the store. Unlike
// the dump import, existing trades are updated in place, with fields the
// scrape does not carry left untouched.
func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	runID := uuid.NewString()
	log := logger.WithRun(runID)

	ctx := context.Background()

	path, err := parsers.FindLatestScrapedFile(config.Cfg.DataDir)
	if err != nil {
		log.Error("No scraped trades file found", "dataDir", config.Cfg.DataDir, "error", err)
		os.Exit(1)
	}
	fmt.Printf("📄 Importing %s\n", path)
	log.Info("Scraped trades import starting", "path", path)

	rows, err := parsers.LoadScrapedTrades(path)
	if err != nil {
		log.Error("Failed to load scraped trades", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(config.Cfg.DatabasePath)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rec := ingest.NewReconciler(db, log)
	var stats ingest.ImportStats
	for i, row := range rows {
		trade, err := processors.AssembleTradeFromScraped(row)
		if err != nil {
			log.Warn("Skipping malformed scraped record", "index", i, "tradeID", row.TradeID, "error", err)
			stats.Failed++
			continue
		}
		if err := rec.EnsurePolitician(ctx, processors.PoliticianFromScraped(row)); err != nil {
			log.Warn("Skipping record, politician upsert failed", "index", i, "error", err)
			stats.Failed++
			continue
		}
		if err := rec.EnsureIssuer(ctx, processors.IssuerFromScraped(row)); err != nil {
			log.Warn("Skipping record, issuer upsert failed", "index", i, "error", err)
			stats.Failed++
			continue
		}
		action, err := rec.UpsertTrade(ctx, trade)
		if err != nil {
			log.Warn("Skipping record, trade upsert failed", "index", i, "tradeID", trade.ID, "error", err)
			stats.Failed++
			continue
		}
		switch action {
		case ingest.ActionInserted:
			stats.Imported++
		case ingest.ActionUpdated:
			stats.Updated++
		default:
			stats.Skipped++
		}
	}

	count, latest, err := rec.VerifyTrades(ctx, verifyLatest)
	if err != nil {
		log.Error("Verification read failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Import complete: %s\n", stats.String())
	fmt.Printf("🔍 Trades in database: %d\n", count)
	fmt.Println("🕐 Latest trades:")
	for _, s := range latest {
		fmt.Printf("   %s %s %s on %s\n",
			s.PoliticianName, s.Type, s.IssuerName, s.TradedAt.Format("2006-01-02"))
	}
	log.Info("Scraped trades import finished", "stats", stats.String(), "totalTrades", count)
}
