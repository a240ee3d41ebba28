package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/insiderflow/src/models"
)

const (
	ensuredCacheExpiration = 15 * time.Minute
	ensuredCacheCleanup    = 30 * time.Minute
)

// TradeAction is what the reconciler decided to do with one record.
type TradeAction int

const (
	ActionInserted TradeAction = iota
	ActionUpdated
	ActionSkipped
)

// Reconciler ensures referenced entities exist and creates-or-updates primary
// records against the store. The ensured-entity cache suppresses redundant
// upserts for politicians/issuers that repeat across a run's batches.
type Reconciler struct {
	db      *sql.DB
	ensured *cache.Cache
	log     *slog.Logger
}

func NewReconciler(db *sql.DB, log *slog.Logger) *Reconciler {
	return &Reconciler{
		db:      db,
		ensured: cache.New(ensuredCacheExpiration, ensuredCacheCleanup),
		log:     log,
	}
}

// EnsurePolitician creates the politician if absent and refreshes the display
// name if present. Identity fields (party, chamber, state) are set on create
// only and never overwritten destructively.
func (r *Reconciler) EnsurePolitician(ctx context.Context, p models.Politician) error {
	cacheKey := "politician:" + p.ID
	if _, found := r.ensured.Get(cacheKey); found {
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO politicians (id, name, party, chamber, state)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE politicians.name END`,
		p.ID, p.Name, p.Party, p.Chamber, p.State)
	if err != nil {
		return fmt.Errorf("ensuring politician %s: %w", p.ID, err)
	}
	r.ensured.SetDefault(cacheKey, true)
	return nil
}

// EnsureIssuer creates the issuer if absent and refreshes name and ticker if
// present. A nil incoming ticker never clears a stored one.
func (r *Reconciler) EnsureIssuer(ctx context.Context, iss models.Issuer) error {
	cacheKey := "issuer:" + iss.ID
	if _, found := r.ensured.Get(cacheKey); found {
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO issuers (id, name, ticker, sector, country)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE issuers.name END,
			ticker = COALESCE(excluded.ticker, issuers.ticker)`,
		iss.ID, iss.Name, iss.Ticker, iss.Sector, iss.Country)
	if err != nil {
		return fmt.Errorf("ensuring issuer %s: %w", iss.ID, err)
	}
	r.ensured.SetDefault(cacheKey, true)
	return nil
}

// UpsertTrade looks the trade up by ID and inserts it with all fields, or
// updates the existing row. The buy/unknown defaults for type and owner apply
// on create only; on update, any field the incoming record does not carry
// leaves the stored value untouched.
func (r *Reconciler) UpsertTrade(ctx context.Context, t models.Trade) (TradeAction, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM trades WHERE id = ?)`, t.ID).Scan(&exists)
	if err != nil {
		return ActionSkipped, fmt.Errorf("looking up trade %s: %w", t.ID, err)
	}

	if !exists {
		tradeType := t.Type
		if tradeType == "" {
			tradeType = "buy"
		}
		owner := t.Owner
		if owner == "" {
			owner = "unknown"
		}
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO trades (id, politician_id, issuer_id, traded_at, published_at, type,
				owner, filed_after_days, size_min, size_max, price, source_url, raw, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.PoliticianID, t.IssuerID, t.TradedAt, t.PublishedAt, tradeType,
			owner, t.FiledAfterDays, t.SizeMin, t.SizeMax, t.Price,
			nullableString(t.SourceURL), string(t.Raw), t.CreatedAt)
		if err != nil {
			return ActionSkipped, fmt.Errorf("inserting trade %s: %w", t.ID, err)
		}
		return ActionInserted, nil
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE trades SET
			politician_id = ?,
			issuer_id = ?,
			traded_at = ?,
			type = COALESCE(?, type),
			owner = COALESCE(?, owner),
			published_at = COALESCE(?, published_at),
			filed_after_days = COALESCE(?, filed_after_days),
			size_min = COALESCE(?, size_min),
			size_max = COALESCE(?, size_max),
			price = COALESCE(?, price),
			source_url = COALESCE(?, source_url),
			raw = CASE WHEN ? = '{}' THEN raw ELSE ? END
		WHERE id = ?`,
		t.PoliticianID, t.IssuerID, t.TradedAt,
		nullableString(t.Type), nullableString(t.Owner),
		t.PublishedAt, t.FiledAfterDays, t.SizeMin, t.SizeMax, t.Price,
		nullableString(t.SourceURL), string(t.Raw), string(t.Raw), t.ID)
	if err != nil {
		return ActionSkipped, fmt.Errorf("updating trade %s: %w", t.ID, err)
	}
	return ActionUpdated, nil
}

// InsertTradesSkipDuplicates bulk-inserts trades, silently ignoring IDs that
// already exist. Used by the historical dump import: already-verified rows
// are never overwritten, and re-running the import is idempotent. Only the
// duplicate-ID conflict is absorbed as a skip; a row the store rejects for
// any other reason is logged with its index and ID, counted as failed, and
// the rest of the chunk proceeds.
func (r *Reconciler) InsertTradesSkipDuplicates(ctx context.Context, trades []models.Trade) (ImportStats, error) {
	var stats ImportStats

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("beginning bulk insert transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO trades (id, politician_id, issuer_id, traded_at, published_at,
			type, owner, filed_after_days, size_min, size_max, price, source_url, raw, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return stats, fmt.Errorf("preparing bulk insert statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range trades {
		res, err := stmt.ExecContext(ctx,
			t.ID, t.PoliticianID, t.IssuerID, t.TradedAt, t.PublishedAt, t.Type,
			t.Owner, t.FiledAfterDays, t.SizeMin, t.SizeMax, t.Price,
			nullableString(t.SourceURL), string(t.Raw), t.CreatedAt)
		if err != nil {
			r.log.Warn("Bulk insert: skipping failed trade", "index", i, "tradeID", t.ID, "error", err)
			stats.Failed++
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			stats.Skipped++
		} else {
			stats.Imported++
		}
	}

	if err := dbTx.Commit(); err != nil {
		return stats, fmt.Errorf("committing bulk insert: %w", err)
	}
	return stats, nil
}

// EnsureCompany upserts a company by ticker and returns its store ID.
func (r *Reconciler) EnsureCompany(ctx context.Context, c models.Company) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (ticker, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE companies.name END,
			updated_at = excluded.updated_at`,
		c.Ticker, c.Name, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("ensuring company %s: %w", c.Ticker, err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT id FROM companies WHERE ticker = ?`, c.Ticker).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving company %s: %w", c.Ticker, err)
	}
	return id, nil
}

// EnsureOwner upserts an owner by name and returns its store ID. The title
// refresh keeps an existing title when the incoming row has none.
func (r *Reconciler) EnsureOwner(ctx context.Context, o models.Owner) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO owners (name, title, is_institution, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			title = COALESCE(excluded.title, owners.title),
			is_institution = excluded.is_institution,
			updated_at = excluded.updated_at`,
		o.Name, o.Title, o.IsInstitution, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("ensuring owner %s: %w", o.Name, err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT id FROM owners WHERE name = ?`, o.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving owner %s: %w", o.Name, err)
	}
	return id, nil
}

// InsertInsiderTransactions bulk-inserts insider transactions whose company
// and owner references have been resolved to store IDs. Duplicate hash IDs
// are skipped; transactions referencing unresolved entities are skipped too.
func (r *Reconciler) InsertInsiderTransactions(ctx context.Context, txs []models.InsiderTransaction) (ImportStats, error) {
	var stats ImportStats

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("beginning insider insert transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO insider_transactions (transaction_date, trade_date,
			transaction_type, last_price, quantity, shares_held, owned, value,
			value_numeric, company_id, owner_id, hash_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash_id) DO NOTHING`)
	if err != nil {
		return stats, fmt.Errorf("preparing insider insert statement: %w", err)
	}
	defer stmt.Close()

	for i, tx := range txs {
		if tx.CompanyID == 0 || tx.OwnerID == 0 {
			stats.Skipped++
			continue
		}
		res, err := stmt.ExecContext(ctx,
			tx.TransactionDate, tx.TradeDate, tx.TransactionType, tx.LastPrice,
			tx.Quantity, tx.SharesHeld, tx.Owned, tx.Value, tx.ValueNumeric,
			tx.CompanyID, tx.OwnerID, tx.HashID, tx.CreatedAt, tx.UpdatedAt)
		if err != nil {
			r.log.Warn("Insider insert: skipping failed transaction", "index", i, "hashID", tx.HashID, "error", err)
			stats.Failed++
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			stats.Skipped++
		} else {
			stats.Imported++
		}
	}

	if err := dbTx.Commit(); err != nil {
		return stats, fmt.Errorf("committing insider insert: %w", err)
	}
	return stats, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
