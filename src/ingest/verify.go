package ingest

import (
	"context"
	"fmt"
	"time"
)

// TradeSummary is one line of the post-run verification read.
type TradeSummary struct {
	PoliticianName string
	Type           string
	IssuerName     string
	TradedAt       time.Time
}

// VerifyTrades does the end-of-run sanity check: total row count plus the
// latest few trades. Operator visibility only, not a transactional guarantee.
func (r *Reconciler) VerifyTrades(ctx context.Context, latest int) (int64, []TradeSummary, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, nil, fmt.Errorf("counting trades: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.name, t.type, i.name, t.traded_at
		FROM trades t
		JOIN politicians p ON p.id = t.politician_id
		JOIN issuers i ON i.id = t.issuer_id
		ORDER BY t.traded_at DESC
		LIMIT ?`, latest)
	if err != nil {
		return count, nil, fmt.Errorf("fetching latest trades: %w", err)
	}
	defer rows.Close()

	var summaries []TradeSummary
	for rows.Next() {
		var s TradeSummary
		if err := rows.Scan(&s.PoliticianName, &s.Type, &s.IssuerName, &s.TradedAt); err != nil {
			return count, summaries, fmt.Errorf("scanning trade summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return count, summaries, rows.Err()
}

// CountInsiderRows reports the insider tables' row counts for the
// verification read after an insider or restore run.
func (r *Reconciler) CountInsiderRows(ctx context.Context) (companies, owners, transactions int64, err error) {
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&companies); err != nil {
		return
	}
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM owners`).Scan(&owners); err != nil {
		return
	}
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM insider_transactions`).Scan(&transactions)
	return
}
