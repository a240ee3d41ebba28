package processors

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/username/insiderflow/src/logger"
	"github.com/username/insiderflow/src/models"
	"github.com/username/insiderflow/src/normalize"
	"github.com/username/insiderflow/src/parsers"
)

// PendingInsiderTransaction is an assembled insider transaction that still
// references its company and owner by natural key; the reconciler resolves
// those to store IDs.
type PendingInsiderTransaction struct {
	models.InsiderTransaction
	CompanyTicker string
	OwnerName     string
}

// InsiderBatch is one CSV import's worth of deduplicated entities plus the
// transactions that reference them. Slices preserve first-seen order.
type InsiderBatch struct {
	Companies    []models.Company
	Owners       []models.Owner
	Transactions []PendingInsiderTransaction
}

// AssembleInsiderBatch turns raw CSV rows into an InsiderBatch. Companies are
// deduplicated by ticker and owners by name in one pass, so the company name
// lookup needs no re-scan of the file. Rows whose transaction date cannot be
// parsed are dropped and counted.
func AssembleInsiderBatch(rows []parsers.RawInsiderRow) (InsiderBatch, int) {
	var batch InsiderBatch
	seenCompanies := make(map[string]bool)
	seenOwners := make(map[string]bool)
	dropped := 0
	now := time.Now()

	for _, row := range rows {
		txDate, err := normalize.ParseDate(row.TransactionDate)
		if err != nil {
			logger.L.Warn("Insider assembler: dropping row with invalid transaction_date",
				"ticker", row.Ticker, "transactionDate", row.TransactionDate)
			dropped++
			continue
		}
		tradeDate := txDate
		if row.TradeDate != "" {
			if t, err := normalize.ParseDate(row.TradeDate); err == nil {
				tradeDate = t
			}
		}

		if !seenCompanies[row.Ticker] {
			seenCompanies[row.Ticker] = true
			name := row.CompanyName
			if name == "" {
				name = row.Ticker
			}
			batch.Companies = append(batch.Companies, models.Company{
				Ticker:    row.Ticker,
				Name:      name,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}

		if !seenOwners[row.OwnerName] {
			seenOwners[row.OwnerName] = true
			owner := models.Owner{
				Name:          row.OwnerName,
				IsInstitution: normalize.IsInstitutionName(row.OwnerName),
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if row.Title != "" {
				title := row.Title
				owner.Title = &title
			}
			batch.Owners = append(batch.Owners, owner)
		}

		tx := PendingInsiderTransaction{
			InsiderTransaction: models.InsiderTransaction{
				TransactionDate: txDate,
				TradeDate:       tradeDate,
				TransactionType: row.TransactionType,
				LastPrice:       parseLastPrice(row.LastPrice),
				Quantity:        row.Qty,
				SharesHeld:      row.SharesHeld,
				Owned:           row.Owned,
				Value:           row.Value,
				ValueNumeric:    normalize.CleanNumericValue(row.Value),
				CreatedAt:       now,
				UpdatedAt:       now,
			},
			CompanyTicker: row.Ticker,
			OwnerName:     row.OwnerName,
		}
		tx.HashID = insiderHash(tx)
		batch.Transactions = append(batch.Transactions, tx)
	}

	return batch, dropped
}

func parseLastPrice(v string) *float64 {
	if v == "" {
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(v), "$"), 64)
	if err != nil {
		return nil
	}
	return &n
}

// insiderHash derives a stable duplicate-suppression key from the natural
// fields, so re-running the same CSV import is idempotent.
func insiderHash(tx PendingInsiderTransaction) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		tx.CompanyTicker, tx.OwnerName,
		tx.TransactionDate.Format(time.RFC3339), tx.TradeDate.Format(time.RFC3339),
		tx.TransactionType, tx.Quantity, tx.Value)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}
