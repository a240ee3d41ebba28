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
	"github.com/username/insiderflow/src/models"
	"github.com/username/insiderflow/src/parsers"
	"github.com/username/insiderflow/src/processors"
)

const dumpChunkSize = 1000

// importtrades bulk-loads the historical trades SQL dump with skip-duplicates
// semantics. Re-running it is safe: existing rows are never touched.
func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	runID := uuid.NewString()
	log := logger.WithRun(runID)
	log.Info("Historical trades import starting", "dumpPath", config.Cfg.TradesDumpPath)

	ctx := context.Background()

	db, err := database.Connect(config.Cfg.DatabasePath)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	f, err := os.Open(config.Cfg.TradesDumpPath)
	if err != nil {
		log.Error("Failed to open trades dump", "path", config.Cfg.TradesDumpPath, "error", err)
		os.Exit(1)
	}
	tuples, err := parsers.ParseSQLDump(f)
	f.Close()
	if err != nil {
		log.Error("Failed to parse trades dump", "error", err)
		os.Exit(1)
	}
	fmt.Printf("📄 Parsed %d tuples from %s\n", len(tuples), config.Cfg.TradesDumpPath)

	trades := make([]models.Trade, 0, len(tuples))
	dropped := 0
	for i, tuple := range tuples {
		trade, err := processors.AssembleTradeFromTuple(tuple)
		if err != nil {
			log.Warn("Dropping malformed tuple", "index", i, "error", err)
			dropped++
			continue
		}
		trades = append(trades, trade)
	}
	if dropped > 0 {
		fmt.Printf("⚠️  Dropped %d malformed tuples\n", dropped)
	}

	rec := ingest.NewReconciler(db, log)
	driver := ingest.NewBatchDriver(dumpChunkSize, log)
	stats, err := driver.Run(ctx, "trades-dump", len(trades),
		func(ctx context.Context, start, end int) (ingest.ImportStats, error) {
			return rec.InsertTradesSkipDuplicates(ctx, trades[start:end])
		})
	if err != nil {
		log.Error("Import run canceled", "error", err)
		os.Exit(1)
	}
	stats.Failed += dropped

	count, _, err := rec.VerifyTrades(ctx, 0)
	if err != nil {
		log.Error("Verification read failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Import complete: %s\n", stats.String())
	fmt.Printf("🔍 Trades in database: %d\n", count)
	log.Info("Historical trades import finished", "stats", stats.String(), "totalTrades", count)
}
