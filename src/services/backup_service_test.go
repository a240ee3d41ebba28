package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/insiderflow/src/database"
	"github.com/username/insiderflow/src/ingest"
	"github.com/username/insiderflow/src/logger"
	"github.com/username/insiderflow/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	m.Run()
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedStore(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	rec := ingest.NewReconciler(db, logger.L)
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, rec.EnsurePolitician(ctx, models.Politician{ID: "p-1", Name: "Jane Smith"}))
	require.NoError(t, rec.EnsureIssuer(ctx, models.Issuer{ID: "i-1", Name: "Acme Corp"}))

	price := 12.5
	_, err := rec.UpsertTrade(ctx, models.Trade{
		ID: "t-1", PoliticianID: "p-1", IssuerID: "i-1",
		TradedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Type:     "buy", Owner: "self", Price: &price,
		Raw: json.RawMessage(`{"sizeText":"1K–5K"}`), CreatedAt: now,
	})
	require.NoError(t, err)

	companyID, err := rec.EnsureCompany(ctx, models.Company{
		Ticker: "AAPL", Name: "Apple Inc", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	ownerID, err := rec.EnsureOwner(ctx, models.Owner{Name: "John Smith", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	_, err = rec.InsertInsiderTransactions(ctx, []models.InsiderTransaction{{
		TransactionDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		TradeDate:       time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
		TransactionType: "P - Purchase", Quantity: "1000", Value: "$185,500",
		ValueNumeric: 185500, CompanyID: companyID, OwnerID: ownerID,
		HashID: "hash-1", CreatedAt: now, UpdatedAt: now,
	}})
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO users (email, name, created_at) VALUES (?, ?, ?)`,
		"op@example.com", "Operator", now)
	require.NoError(t, err)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	source := newTestDB(t)
	seedStore(t, source)

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data_backup.json")

	backup, err := NewBackupService(source, logger.L).Backup(ctx, path)
	require.NoError(t, err)
	assert.NotEmpty(t, backup.Timestamp)
	assert.Len(t, backup.Trades, 1)
	assert.Len(t, backup.Companies, 1)
	assert.Len(t, backup.Users, 1)

	loaded, err := LoadBackup(path)
	require.NoError(t, err)
	assert.Equal(t, backup.Timestamp, loaded.Timestamp)

	// Restore into an empty store and check it carries everything over.
	target := newTestDB(t)
	stats, err := NewBackupService(target, logger.L).Restore(ctx, loaded)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Imported)
	assert.Equal(t, 0, stats.Failed)

	var tradeID, tradeType, raw string
	var price sql.NullFloat64
	require.NoError(t, target.QueryRow(
		`SELECT id, type, raw, price FROM trades`).Scan(&tradeID, &tradeType, &raw, &price))
	assert.Equal(t, "t-1", tradeID)
	assert.Equal(t, "buy", tradeType)
	assert.JSONEq(t, `{"sizeText":"1K–5K"}`, raw)
	require.True(t, price.Valid)
	assert.Equal(t, 12.5, price.Float64)

	var hashID string
	require.NoError(t, target.QueryRow(`SELECT hash_id FROM insider_transactions`).Scan(&hashID))
	assert.Equal(t, "hash-1", hashID)

	// The seeded trade had no source_url; it must come back NULL, not ''.
	var nullURLs int
	require.NoError(t, target.QueryRow(
		`SELECT COUNT(*) FROM trades WHERE source_url IS NULL`).Scan(&nullURLs))
	assert.Equal(t, 1, nullURLs)
}

func TestRestoreIsAdditive(t *testing.T) {
	db := newTestDB(t)
	seedStore(t, db)

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data_backup.json")
	svc := NewBackupService(db, logger.L)
	backup, err := svc.Backup(ctx, path)
	require.NoError(t, err)

	// Restoring over the source store skips every row.
	stats, err := svc.Restore(ctx, backup)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Imported)
	assert.Equal(t, 7, stats.Skipped)
	assert.Equal(t, 0, stats.Failed)

	var count int64
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count))
	assert.Equal(t, int64(1), count)
}

func TestLoadBackupErrors(t *testing.T) {
	_, err := LoadBackup(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
