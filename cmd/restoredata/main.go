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
	"github.com/username/insiderflow/src/services"
)

// restoredata loads a data_backup.json snapshot into the store. Rows that
// already exist are skipped, so a restore never clobbers live data.
func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	runID := uuid.NewString()
	log := logger.WithRun(runID)
	log.Info("Restore starting", "path", config.Cfg.BackupPath)

	backup, err := services.LoadBackup(config.Cfg.BackupPath)
	if err != nil {
		log.Error("Failed to load backup file", "error", err)
		os.Exit(1)
	}
	fmt.Printf("📄 Loaded snapshot from %s (taken %s)\n", config.Cfg.BackupPath, backup.Timestamp)

	db, err := database.Connect(config.Cfg.DatabasePath)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	svc := services.NewBackupService(db, log)
	stats, err := svc.Restore(ctx, backup)
	if err != nil {
		log.Error("Restore canceled", "error", err)
		os.Exit(1)
	}

	rec := ingest.NewReconciler(db, log)
	tradeCount, _, err := rec.VerifyTrades(ctx, 0)
	if err != nil {
		log.Error("Verification read failed", "error", err)
		os.Exit(1)
	}
	companies, owners, transactions, err := rec.CountInsiderRows(ctx)
	if err != nil {
		log.Error("Verification read failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Restore complete: %s\n", stats.String())
	fmt.Printf("🔍 Database now holds %d trades, %d companies, %d owners, %d transactions\n",
		tradeCount, companies, owners, transactions)
	log.Info("Restore finished", "stats", stats.String())
}
