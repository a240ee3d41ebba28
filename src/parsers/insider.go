package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/username/insiderflow/src/logger"
)

// RawInsiderRow is one CSV row from the insider export, untyped. Column names
// follow the export's header exactly (mixed case and all).
type RawInsiderRow struct {
	Ticker          string
	CompanyName     string
	OwnerName       string
	Title           string
	TransactionDate string
	TradeDate       string
	TransactionType string
	LastPrice       string
	Qty             string
	SharesHeld      string
	Owned           string
	Value           string
}

// ParseInsiderCSV reads the insider export in a single pass. Rows missing a
// ticker or owner name carry nothing actionable and are skipped with a count;
// the caller gets everything else verbatim for the assembler to normalize.
func ParseInsiderCSV(r io.Reader) ([]RawInsiderRow, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("insider: failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"ticker", "owner_name", "transaction_date"} {
		if _, ok := col[required]; !ok {
			return nil, 0, fmt.Errorf("insider: CSV header missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []RawInsiderRow
	dropped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A single mangled line should not sink a multi-thousand-row file.
			logger.L.Warn("Insider CSV: skipping unreadable row", "error", err)
			dropped++
			continue
		}

		row := RawInsiderRow{
			Ticker:          field(record, "ticker"),
			CompanyName:     field(record, "company_name"),
			OwnerName:       field(record, "owner_name"),
			Title:           field(record, "Title"),
			TransactionDate: field(record, "transaction_date"),
			TradeDate:       field(record, "trade_date"),
			TransactionType: field(record, "transaction_type"),
			LastPrice:       field(record, "last_price"),
			Qty:             field(record, "Qty"),
			SharesHeld:      field(record, "shares_held"),
			Owned:           field(record, "Owned"),
			Value:           field(record, "Value"),
		}
		if row.Ticker == "" || row.OwnerName == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, dropped, nil
}
