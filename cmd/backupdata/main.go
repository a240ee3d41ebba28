package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/username/insiderflow/src/config"
	"github.com/username/insiderflow/src/database"
	"github.com/username/insiderflow/src/logger"
	"github.com/username/insiderflow/src/services"
)

// backupdata snapshots every entity table into data_backup.json.
func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	runID := uuid.NewString()
	log := logger.WithRun(runID)
	log.Info("Backup starting", "path", config.Cfg.BackupPath)

	db, err := database.Connect(config.Cfg.DatabasePath)
	if err != nil {
		log.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := services.NewBackupService(db, log)
	backup, err := svc.Backup(context.Background(), config.Cfg.BackupPath)
	if err != nil {
		log.Error("Backup failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Backup written to %s\n", config.Cfg.BackupPath)
	fmt.Printf("   🏢 %d companies, 👤 %d owners, 📊 %d transactions\n",
		len(backup.Companies), len(backup.Owners), len(backup.Transactions))
	fmt.Printf("   🏛️  %d politicians, 💼 %d trades, 🏷️  %d issuers, 🔑 %d users\n",
		len(backup.Politicians), len(backup.Trades), len(backup.Issuers), len(backup.Users))
}
