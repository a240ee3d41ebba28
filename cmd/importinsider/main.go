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

const insiderChunkSize = 500

// importinsider loads an OpenInsider-style CSV export: companies and owners
// are ensured first, then transactions go in with hash-based duplicate
// suppression so re-importing the same file changes nothing.
func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	runID := uuid.NewString()
	log := logger.WithRun(runID)
	log.Info("Insider transactions import starting", "csvPath", config.Cfg.InsiderCSVPath)

	ctx := context.Background()

	f, err := os.Open(config.Cfg.InsiderCSVPath)
	if err != nil {
		log.Error("Failed to open insider CSV", "path", config.Cfg.InsiderCSVPath, "error", err)
		os.Exit(1)
	}
	rows, skipped, err := parsers.ParseInsiderCSV(f)
	f.Close()
	if err != nil {
		log.Error("Failed to parse insider CSV", "error", err)
		os.Exit(1)
	}
	fmt.Printf("📄 Parsed %d rows from %s (%d skipped)\n", len(rows), config.Cfg.InsiderCSVPath, skipped)

	batch, dropped := processors.AssembleInsiderBatch(rows)
	fmt.Printf("🏢 %d companies, 👤 %d owners, 📊 %d transactions\n",
		len(batch.Companies), len(batch.Owners), len(batch.Transactions))

	db, err := database.Connect(config.Cfg.DatabasePath)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rec := ingest.NewReconciler(db, log)

	companyIDs := make(map[string]int64, len(batch.Companies))
	for _, c := range batch.Companies {
		id, err := rec.EnsureCompany(ctx, c)
		if err != nil {
			log.Warn("Company upsert failed", "ticker", c.Ticker, "error", err)
			continue
		}
		companyIDs[c.Ticker] = id
	}

	ownerIDs := make(map[string]int64, len(batch.Owners))
	for _, o := range batch.Owners {
		id, err := rec.EnsureOwner(ctx, o)
		if err != nil {
			log.Warn("Owner upsert failed", "name", o.Name, "error", err)
			continue
		}
		ownerIDs[o.Name] = id
	}

	txs := make([]models.InsiderTransaction, len(batch.Transactions))
	for i, pending := range batch.Transactions {
		tx := pending.InsiderTransaction
		tx.CompanyID = companyIDs[pending.CompanyTicker]
		tx.OwnerID = ownerIDs[pending.OwnerName]
		txs[i] = tx
	}

	driver := ingest.NewBatchDriver(insiderChunkSize, log)
	stats, err := driver.Run(ctx, "insider-transactions", len(txs),
		func(ctx context.Context, start, end int) (ingest.ImportStats, error) {
			return rec.InsertInsiderTransactions(ctx, txs[start:end])
		})
	if err != nil {
		log.Error("Import run canceled", "error", err)
		os.Exit(1)
	}
	stats.Failed += dropped + skipped

	companies, owners, transactions, err := rec.CountInsiderRows(ctx)
	if err != nil {
		log.Error("Verification read failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Import complete: %s\n", stats.String())
	fmt.Printf("🔍 Database now holds %d companies, %d owners, %d transactions\n",
		companies, owners, transactions)
	log.Info("Insider transactions import finished", "stats", stats.String(),
		"companies", companies, "owners", owners, "transactions", transactions)
}
