package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/username/insiderflow/src/ingest"
	"github.com/username/insiderflow/src/models"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// Batch sizes for the restore path. Transactions are the widest rows, so they
// go in the smallest chunks.
const (
	companyRestoreBatch     = 100
	ownerRestoreBatch       = 100
	transactionRestoreBatch = 50
	tradeRestoreBatch       = 1000
	entityRestoreBatch      = 100
)

// BackupService produces and consumes data_backup.json snapshots. The format
// is stable and versionless: seven entity arrays plus a timestamp.
type BackupService struct {
	db  *sql.DB
	log *slog.Logger
}

func NewBackupService(db *sql.DB, log *slog.Logger) *BackupService {
	return &BackupService{db: db, log: log}
}

// Backup dumps every entity table to path.
func (s *BackupService) Backup(ctx context.Context, path string) (*models.Backup, error) {
	backup := &models.Backup{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	var err error

	if backup.Companies, err = s.readCompanies(ctx); err != nil {
		return nil, err
	}
	if backup.Owners, err = s.readOwners(ctx); err != nil {
		return nil, err
	}
	if backup.Transactions, err = s.readTransactions(ctx); err != nil {
		return nil, err
	}
	if backup.Users, err = s.readUsers(ctx); err != nil {
		return nil, err
	}
	if backup.Politicians, err = s.readPoliticians(ctx); err != nil {
		return nil, err
	}
	if backup.Trades, err = s.readTrades(ctx); err != nil {
		return nil, err
	}
	if backup.Issuers, err = s.readIssuers(ctx); err != nil {
		return nil, err
	}

	data, err := jsonit.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("backup: writing %s: %w", path, err)
	}

	s.log.Info("Backup written", "path", path,
		"companies", len(backup.Companies), "owners", len(backup.Owners),
		"transactions", len(backup.Transactions), "users", len(backup.Users),
		"politicians", len(backup.Politicians), "trades", len(backup.Trades),
		"issuers", len(backup.Issuers))
	return backup, nil
}

// LoadBackup reads and decodes a snapshot file.
func LoadBackup(path string) (*models.Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("restore: reading %s: %w", path, err)
	}
	var backup models.Backup
	if err := jsonit.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("restore: decoding %s: %w", path, err)
	}
	return &backup, nil
}

// Restore bulk-loads a snapshot with skip-duplicates semantics throughout:
// rows whose keys already exist are left alone, so restoring over a live
// database is additive, never destructive.
func (s *BackupService) Restore(ctx context.Context, backup *models.Backup) (ingest.ImportStats, error) {
	var total ingest.ImportStats

	stats, err := ingest.NewBatchDriver(companyRestoreBatch, s.log).Run(ctx, "companies",
		len(backup.Companies), func(ctx context.Context, start, end int) (ingest.ImportStats, error) {
			return s.restoreCompanies(ctx, backup.Companies[start:end])
		})
	if err != nil {
		return total, err
	}
	total.Add(stats)

	stats, err = ingest.NewBatchDriver(ownerRestoreBatch, s.log).Run(ctx, "owners",
		len(backup.Owners), func(ctx context.Context, start, end int) (ingest.ImportStats, error) {
			return s.restoreOwners(ctx, backup.Owners[start:end])
		})
	if err != nil {
		return total, err
	}
	total.Add(stats)

	stats, err = ingest.NewBatchDriver(transactionRestoreBatch, s.log).Run(ctx, "transactions",
		len(backup.Transactions), func(ctx context.Context, start, end int) (ingest.ImportStats, error) {
			return s.restoreTransactions(ctx, backup.Transactions[start:end])
		})
	if err != nil {
		return total, err
	}
	total.Add(stats)

	stats, err = ingest.NewBatchDriver(entityRestoreBatch, s.log).Run(ctx, "users",
		len(backup.Users), func(ctx context.Context, start, end int) (ingest.ImportStats, error) {
			return s.restoreUsers(ctx, backup.Users[start:end])
		})
	if err != nil {
		return total, err
	}
	total.Add(stats)

	stats, err = ingest.NewBatchDriver(entityRestoreBatch, s.log).Run(ctx, "politicians",
		len(backup.Politicians), func(ctx context.Context, start, end int) (ingest.ImportStats, error) {
			return s.restorePoliticians(ctx, backup.Politicians[start:end])
		})
	if err != nil {
		return total, err
	}
	total.Add(stats)

	stats, err = ingest.NewBatchDriver(entityRestoreBatch, s.log).Run(ctx, "issuers",
		len(backup.Issuers), func(ctx context.Context, start, end int) (ingest.ImportStats, error) {
			return s.restoreIssuers(ctx, backup.Issuers[start:end])
		})
	if err != nil {
		return total, err
	}
	total.Add(stats)

	stats, err = ingest.NewBatchDriver(tradeRestoreBatch, s.log).Run(ctx, "trades",
		len(backup.Trades), func(ctx context.Context, start, end int) (ingest.ImportStats, error) {
			return s.restoreTrades(ctx, backup.Trades[start:end])
		})
	if err != nil {
		return total, err
	}
	total.Add(stats)

	return total, nil
}

func (s *BackupService) restoreCompanies(ctx context.Context, companies []models.Company) (ingest.ImportStats, error) {
	var stats ingest.ImportStats
	for _, c := range companies {
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO companies (id, ticker, name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Ticker, c.Name, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			s.log.Warn("Restore: company failed", "ticker", c.Ticker, "error", err)
			stats.Failed++
			continue
		}
		countInsert(&stats, res)
	}
	return stats, nil
}

func (s *BackupService) restoreOwners(ctx context.Context, owners []models.Owner) (ingest.ImportStats, error) {
	var stats ingest.ImportStats
	for _, o := range owners {
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO owners (id, name, title, is_institution, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			o.ID, o.Name, o.Title, o.IsInstitution, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			s.log.Warn("Restore: owner failed", "name", o.Name, "error", err)
			stats.Failed++
			continue
		}
		countInsert(&stats, res)
	}
	return stats, nil
}

func (s *BackupService) restoreTransactions(ctx context.Context, txs []models.InsiderTransaction) (ingest.ImportStats, error) {
	var stats ingest.ImportStats
	for _, tx := range txs {
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO insider_transactions (id, transaction_date, trade_date,
				transaction_type, last_price, quantity, shares_held, owned, value,
				value_numeric, company_id, owner_id, hash_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tx.ID, tx.TransactionDate, tx.TradeDate, tx.TransactionType, tx.LastPrice,
			tx.Quantity, tx.SharesHeld, tx.Owned, tx.Value, tx.ValueNumeric,
			tx.CompanyID, tx.OwnerID, restoreHashID(tx), tx.CreatedAt, tx.UpdatedAt)
		if err != nil {
			s.log.Warn("Restore: transaction failed", "id", tx.ID, "error", err)
			stats.Failed++
			continue
		}
		countInsert(&stats, res)
	}
	return stats, nil
}

func (s *BackupService) restoreUsers(ctx context.Context, users []models.User) (ingest.ImportStats, error) {
	var stats ingest.ImportStats
	for _, u := range users {
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO users (id, email, name, created_at)
			VALUES (?, ?, ?, ?)`,
			u.ID, u.Email, u.Name, u.CreatedAt)
		if err != nil {
			s.log.Warn("Restore: user failed", "email", u.Email, "error", err)
			stats.Failed++
			continue
		}
		countInsert(&stats, res)
	}
	return stats, nil
}

func (s *BackupService) restorePoliticians(ctx context.Context, politicians []models.Politician) (ingest.ImportStats, error) {
	var stats ingest.ImportStats
	for _, p := range politicians {
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO politicians (id, name, party, chamber, state)
			VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Party, p.Chamber, p.State)
		if err != nil {
			s.log.Warn("Restore: politician failed", "id", p.ID, "error", err)
			stats.Failed++
			continue
		}
		countInsert(&stats, res)
	}
	return stats, nil
}

func (s *BackupService) restoreIssuers(ctx context.Context, issuers []models.Issuer) (ingest.ImportStats, error) {
	var stats ingest.ImportStats
	for _, iss := range issuers {
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO issuers (id, name, ticker, sector, country)
			VALUES (?, ?, ?, ?, ?)`,
			iss.ID, iss.Name, iss.Ticker, iss.Sector, iss.Country)
		if err != nil {
			s.log.Warn("Restore: issuer failed", "id", iss.ID, "error", err)
			stats.Failed++
			continue
		}
		countInsert(&stats, res)
	}
	return stats, nil
}

func (s *BackupService) restoreTrades(ctx context.Context, trades []models.Trade) (ingest.ImportStats, error) {
	var stats ingest.ImportStats
	for _, t := range trades {
		raw := string(t.Raw)
		if raw == "" {
			raw = "{}"
		}
		res, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO trades (id, politician_id, issuer_id, traded_at, published_at,
				type, owner, filed_after_days, size_min, size_max, price, source_url, raw, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.PoliticianID, t.IssuerID, t.TradedAt, t.PublishedAt, t.Type, t.Owner,
			t.FiledAfterDays, t.SizeMin, t.SizeMax, t.Price, nullableString(t.SourceURL),
			raw, t.CreatedAt)
		if err != nil {
			s.log.Warn("Restore: trade failed", "id", t.ID, "error", err)
			stats.Failed++
			continue
		}
		countInsert(&stats, res)
	}
	return stats, nil
}

// restoreHashID tolerates snapshots taken before hash_id existed.
func restoreHashID(tx models.InsiderTransaction) string {
	if tx.HashID != "" {
		return tx.HashID
	}
	return fmt.Sprintf("restored-%d", tx.ID)
}

// nullableString keeps an absent source_url NULL across a backup/restore
// round trip instead of degrading it to an empty string.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func countInsert(stats *ingest.ImportStats, res sql.Result) {
	if n, _ := res.RowsAffected(); n == 0 {
		stats.Skipped++
	} else {
		stats.Imported++
	}
}

func (s *BackupService) readCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticker, name, created_at, updated_at FROM companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("backup: reading companies: %w", err)
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Ticker, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("backup: scanning company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *BackupService) readOwners(ctx context.Context) ([]models.Owner, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, title, is_institution, created_at, updated_at FROM owners ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("backup: reading owners: %w", err)
	}
	defer rows.Close()

	owners := []models.Owner{}
	for rows.Next() {
		var o models.Owner
		var title sql.NullString
		if err := rows.Scan(&o.ID, &o.Name, &title, &o.IsInstitution, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("backup: scanning owner: %w", err)
		}
		if title.Valid {
			o.Title = &title.String
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func (s *BackupService) readTransactions(ctx context.Context) ([]models.InsiderTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_date, trade_date, transaction_type, last_price, quantity,
			shares_held, owned, value, value_numeric, company_id, owner_id, hash_id,
			created_at, updated_at
		FROM insider_transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("backup: reading transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.InsiderTransaction{}
	for rows.Next() {
		var tx models.InsiderTransaction
		var lastPrice sql.NullFloat64
		if err := rows.Scan(&tx.ID, &tx.TransactionDate, &tx.TradeDate, &tx.TransactionType,
			&lastPrice, &tx.Quantity, &tx.SharesHeld, &tx.Owned, &tx.Value, &tx.ValueNumeric,
			&tx.CompanyID, &tx.OwnerID, &tx.HashID, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("backup: scanning transaction: %w", err)
		}
		if lastPrice.Valid {
			tx.LastPrice = &lastPrice.Float64
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *BackupService) readUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("backup: reading users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var name sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &name, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("backup: scanning user: %w", err)
		}
		u.Name = name.String
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *BackupService) readPoliticians(ctx context.Context) ([]models.Politician, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, party, chamber, state FROM politicians ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("backup: reading politicians: %w", err)
	}
	defer rows.Close()

	politicians := []models.Politician{}
	for rows.Next() {
		var p models.Politician
		var party, chamber, state sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &party, &chamber, &state); err != nil {
			return nil, fmt.Errorf("backup: scanning politician: %w", err)
		}
		if party.Valid {
			p.Party = &party.String
		}
		if chamber.Valid {
			p.Chamber = &chamber.String
		}
		if state.Valid {
			p.State = &state.String
		}
		politicians = append(politicians, p)
	}
	return politicians, rows.Err()
}

func (s *BackupService) readIssuers(ctx context.Context) ([]models.Issuer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, ticker, sector, country FROM issuers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("backup: reading issuers: %w", err)
	}
	defer rows.Close()

	issuers := []models.Issuer{}
	for rows.Next() {
		var iss models.Issuer
		var ticker, sector, country sql.NullString
		if err := rows.Scan(&iss.ID, &iss.Name, &ticker, &sector, &country); err != nil {
			return nil, fmt.Errorf("backup: scanning issuer: %w", err)
		}
		if ticker.Valid {
			iss.Ticker = &ticker.String
		}
		if sector.Valid {
			iss.Sector = &sector.String
		}
		if country.Valid {
			iss.Country = &country.String
		}
		issuers = append(issuers, iss)
	}
	return issuers, rows.Err()
}

func (s *BackupService) readTrades(ctx context.Context) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, politician_id, issuer_id, traded_at, published_at, type, owner,
			filed_after_days, size_min, size_max, price, source_url, raw, created_at
		FROM trades ORDER BY traded_at`)
	if err != nil {
		return nil, fmt.Errorf("backup: reading trades: %w", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		var t models.Trade
		var publishedAt sql.NullTime
		var filedAfterDays sql.NullInt64
		var sizeMin, sizeMax, price sql.NullFloat64
		var sourceURL sql.NullString
		var raw string
		if err := rows.Scan(&t.ID, &t.PoliticianID, &t.IssuerID, &t.TradedAt, &publishedAt,
			&t.Type, &t.Owner, &filedAfterDays, &sizeMin, &sizeMax, &price, &sourceURL,
			&raw, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("backup: scanning trade: %w", err)
		}
		if publishedAt.Valid {
			t.PublishedAt = &publishedAt.Time
		}
		if filedAfterDays.Valid {
			t.FiledAfterDays = &filedAfterDays.Int64
		}
		if sizeMin.Valid {
			t.SizeMin = &sizeMin.Float64
		}
		if sizeMax.Valid {
			t.SizeMax = &sizeMax.Float64
		}
		if price.Valid {
			t.Price = &price.Float64
		}
		t.SourceURL = sourceURL.String
		t.Raw = json.RawMessage(raw)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
