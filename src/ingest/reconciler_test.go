package ingest

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
	"github.com/username/insiderflow/src/logger"
	"github.com/username/insiderflow/src/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testTrade(id string) models.Trade {
	return models.Trade{
		ID:           id,
		PoliticianID: "p-1",
		IssuerID:     "i-1",
		TradedAt:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Type:         "buy",
		Owner:        "self",
		Raw:          json.RawMessage("{}"),
		CreatedAt:    time.Now(),
	}
}

func seedReferences(t *testing.T, rec *Reconciler) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, rec.EnsurePolitician(ctx, models.Politician{ID: "p-1", Name: "Jane Smith"}))
	require.NoError(t, rec.EnsureIssuer(ctx, models.Issuer{ID: "i-1", Name: "Acme Corp"}))
}

func TestEnsurePoliticianRefreshesName(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()

	require.NoError(t, rec.EnsurePolitician(ctx, models.Politician{ID: "p-1", Name: "J. Smith"}))

	// A fresh reconciler bypasses the ensured cache and hits the store again.
	rec2 := NewReconciler(db, logger.L)
	require.NoError(t, rec2.EnsurePolitician(ctx, models.Politician{ID: "p-1", Name: "Jane Smith"}))
	require.NoError(t, rec2.EnsurePolitician(ctx, models.Politician{ID: "p-1", Name: ""}))

	var name string
	require.NoError(t, db.QueryRow(`SELECT name FROM politicians WHERE id = 'p-1'`).Scan(&name))
	// The empty re-ensure was served from cache; the stored name is the refresh.
	assert.Equal(t, "Jane Smith", name)
}

func TestEnsureIssuerKeepsTicker(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ticker := "ACME"
	rec := NewReconciler(db, logger.L)
	require.NoError(t, rec.EnsureIssuer(ctx, models.Issuer{ID: "i-1", Name: "Acme Corp", Ticker: &ticker}))

	rec2 := NewReconciler(db, logger.L)
	require.NoError(t, rec2.EnsureIssuer(ctx, models.Issuer{ID: "i-1", Name: "Acme Corporation"}))

	var name string
	var stored sql.NullString
	require.NoError(t, db.QueryRow(`SELECT name, ticker FROM issuers WHERE id = 'i-1'`).Scan(&name, &stored))
	assert.Equal(t, "Acme Corporation", name)
	require.True(t, stored.Valid)
	assert.Equal(t, "ACME", stored.String)
}

func TestUpsertTradeInsertThenUpdate(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()
	seedReferences(t, rec)

	price := 100.0
	trade := testTrade("t-1")
	trade.Price = &price

	action, err := rec.UpsertTrade(ctx, trade)
	require.NoError(t, err)
	assert.Equal(t, ActionInserted, action)

	// Second pass without a price: the stored price must survive.
	update := testTrade("t-1")
	update.Type = "sell"
	action, err = rec.UpsertTrade(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, action)

	var storedType string
	var storedPrice sql.NullFloat64
	require.NoError(t, db.QueryRow(
		`SELECT type, price FROM trades WHERE id = 't-1'`).Scan(&storedType, &storedPrice))
	assert.Equal(t, "sell", storedType)
	require.True(t, storedPrice.Valid)
	assert.Equal(t, 100.0, storedPrice.Float64)
}

func TestUpsertTradeDefaultsTypeOwnerOnInsert(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()
	seedReferences(t, rec)

	trade := testTrade("t-1")
	trade.Type = ""
	trade.Owner = ""
	action, err := rec.UpsertTrade(ctx, trade)
	require.NoError(t, err)
	assert.Equal(t, ActionInserted, action)

	var storedType, storedOwner string
	require.NoError(t, db.QueryRow(
		`SELECT type, owner FROM trades WHERE id = 't-1'`).Scan(&storedType, &storedOwner))
	assert.Equal(t, "buy", storedType)
	assert.Equal(t, "unknown", storedOwner)
}

func TestUpsertTradeKeepsTypeOwnerWhenUpdateOmitsThem(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()
	seedReferences(t, rec)

	trade := testTrade("t-1")
	trade.Type = "sell"
	trade.Owner = "spouse"
	_, err := rec.UpsertTrade(ctx, trade)
	require.NoError(t, err)

	// A re-scrape without type/owner must not clobber the stored values with
	// the create-time defaults.
	update := testTrade("t-1")
	update.Type = ""
	update.Owner = ""
	action, err := rec.UpsertTrade(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, action)

	var storedType, storedOwner string
	require.NoError(t, db.QueryRow(
		`SELECT type, owner FROM trades WHERE id = 't-1'`).Scan(&storedType, &storedOwner))
	assert.Equal(t, "sell", storedType)
	assert.Equal(t, "spouse", storedOwner)
}

func TestUpsertTradeKeepsRawOnEmptyIncoming(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()
	seedReferences(t, rec)

	trade := testTrade("t-1")
	trade.Raw = json.RawMessage(`{"sizeText":"1K–5K"}`)
	_, err := rec.UpsertTrade(ctx, trade)
	require.NoError(t, err)

	update := testTrade("t-1")
	_, err = rec.UpsertTrade(ctx, update)
	require.NoError(t, err)

	var raw string
	require.NoError(t, db.QueryRow(`SELECT raw FROM trades WHERE id = 't-1'`).Scan(&raw))
	assert.JSONEq(t, `{"sizeText":"1K–5K"}`, raw)
}

func TestInsertTradesSkipDuplicates(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()
	seedReferences(t, rec)

	trades := []models.Trade{testTrade("t-1"), testTrade("t-2"), testTrade("t-3")}
	stats, err := rec.InsertTradesSkipDuplicates(ctx, trades)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Imported)

	// Re-running the same batch changes nothing.
	stats, err = rec.InsertTradesSkipDuplicates(ctx, trades)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Imported)
	assert.Equal(t, 3, stats.Skipped)

	count, _, err := rec.VerifyTrades(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestInsertTradesSkipDuplicatesReportsOtherConstraintFailures(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()
	seedReferences(t, rec)

	// Add a unique constraint the insert does not target: a violation of it is
	// a store rejection, not a duplicate, and must surface as a failure.
	_, err := db.Exec(`CREATE UNIQUE INDEX idx_trades_source_url ON trades(source_url)`)
	require.NoError(t, err)

	first := testTrade("t-1")
	first.SourceURL = "https://example.com/trades/t-1"
	second := testTrade("t-2")
	second.SourceURL = first.SourceURL

	stats, err := rec.InsertTradesSkipDuplicates(ctx, []models.Trade{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
}

func TestVerifyTradesLatest(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()
	seedReferences(t, rec)

	for i, day := range []int{10, 20, 30} {
		trade := testTrade([]string{"t-1", "t-2", "t-3"}[i])
		trade.TradedAt = time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
		_, err := rec.UpsertTrade(ctx, trade)
		require.NoError(t, err)
	}

	count, latest, err := rec.VerifyTrades(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	require.Len(t, latest, 2)
	assert.Equal(t, "Jane Smith", latest[0].PoliticianName)
	assert.Equal(t, 30, latest[0].TradedAt.Day())
	assert.Equal(t, 20, latest[1].TradedAt.Day())
}

func TestEnsureCompanyAndOwner(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()
	now := time.Now()

	companyID, err := rec.EnsureCompany(ctx, models.Company{
		Ticker: "AAPL", Name: "Apple Inc", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NotZero(t, companyID)

	again, err := rec.EnsureCompany(ctx, models.Company{
		Ticker: "AAPL", Name: "Apple Inc.", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, companyID, again)

	title := "CEO"
	ownerID, err := rec.EnsureOwner(ctx, models.Owner{
		Name: "John Smith", Title: &title, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	// Re-ensuring without a title keeps the stored one.
	again, err = rec.EnsureOwner(ctx, models.Owner{
		Name: "John Smith", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, ownerID, again)

	var stored sql.NullString
	require.NoError(t, db.QueryRow(`SELECT title FROM owners WHERE id = ?`, ownerID).Scan(&stored))
	require.True(t, stored.Valid)
	assert.Equal(t, "CEO", stored.String)
}

func TestInsertInsiderTransactions(t *testing.T) {
	db := newTestDB(t)
	rec := NewReconciler(db, logger.L)
	ctx := context.Background()
	now := time.Now()

	companyID, err := rec.EnsureCompany(ctx, models.Company{
		Ticker: "AAPL", Name: "Apple Inc", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	ownerID, err := rec.EnsureOwner(ctx, models.Owner{Name: "John Smith", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	tx := models.InsiderTransaction{
		TransactionDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		TradeDate:       time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
		TransactionType: "P - Purchase",
		Quantity:        "1000",
		Value:           "$185,500",
		ValueNumeric:    185500,
		CompanyID:       companyID,
		OwnerID:         ownerID,
		HashID:          "hash-1",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	unresolved := tx
	unresolved.CompanyID = 0
	unresolved.HashID = "hash-2"

	stats, err := rec.InsertInsiderTransactions(ctx, []models.InsiderTransaction{tx, unresolved})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, 1, stats.Skipped)

	// Duplicate hash is suppressed.
	stats, err = rec.InsertInsiderTransactions(ctx, []models.InsiderTransaction{tx})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Imported)
	assert.Equal(t, 1, stats.Skipped)

	_, _, transactions, err := rec.CountInsiderRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), transactions)
}
