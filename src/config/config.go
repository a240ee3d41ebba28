package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DatabasePath string
	LogLevel     string

	// DataDir is where the import tools look for source files
	// (trades_dump.sql, trades_scraped_*.json, the insider CSV) and where
	// backup_data writes data_backup.json.
	DataDir string

	InsiderCSVPath string
	TradesDumpPath string
	BackupPath     string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	dataDir := getEnv("DATA_DIR", ".")

	Cfg = &AppConfig{
		DatabasePath:   getEnv("DATABASE_PATH", "./insiderflow.db"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DataDir:        dataDir,
		InsiderCSVPath: getEnv("INSIDER_CSV_PATH", dataDir+"/insider_trades_2023_2025.csv"),
		TradesDumpPath: getEnv("TRADES_DUMP_PATH", dataDir+"/trades_dump.sql"),
		BackupPath:     getEnv("BACKUP_PATH", dataDir+"/data_backup.json"),
	}

	log.Printf("Configuration loaded: DBPath=%s, LogLevel=%s, DataDir=%s",
		Cfg.DatabasePath, Cfg.LogLevel, Cfg.DataDir)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}
