package processors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/username/insiderflow/src/models"
	"github.com/username/insiderflow/src/normalize"
	"github.com/username/insiderflow/src/parsers"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// tradeTupleColumns is the fixed column order of the trades SQL dump.
const tradeTupleColumns = 14

var (
	// ErrShortTuple marks tuples with fewer than the 14 expected columns.
	// Callers drop these and surface an aggregate count.
	ErrShortTuple = errors.New("assembler: tuple has fewer than 14 values")
	// ErrMissingRequired marks records without an ID, references or trade date.
	ErrMissingRequired = errors.New("assembler: record missing required fields")
)

// AssembleTradeFromTuple builds a canonical Trade from one dump tuple in the
// fixed order: id, politician_id, issuer_id, traded_at, type, size_min,
// size_max, published_at, filed_after_days, owner, price, source_url, raw,
// created_at.
func AssembleTradeFromTuple(values []string) (models.Trade, error) {
	if len(values) < tradeTupleColumns {
		return models.Trade{}, fmt.Errorf("%w: got %d", ErrShortTuple, len(values))
	}

	text := func(i int) string { return parsers.UnquoteSQLValue(values[i]) }
	optText := func(i int) string {
		if parsers.IsSQLNull(values[i]) {
			return ""
		}
		return text(i)
	}

	id := text(0)
	politicianID := text(1)
	issuerID := text(2)
	if id == "" || politicianID == "" || issuerID == "" {
		return models.Trade{}, ErrMissingRequired
	}

	tradedAt, err := normalize.ParseDate(text(3))
	if err != nil {
		// An unparseable trade date rejects the record, it is never defaulted.
		return models.Trade{}, fmt.Errorf("assembler: invalid traded_at %q: %w", text(3), err)
	}

	trade := models.Trade{
		ID:           id,
		PoliticianID: politicianID,
		IssuerID:     issuerID,
		TradedAt:     tradedAt,
		Type:         text(4),
		Owner:        optText(9),
		SourceURL:    optText(11),
		SizeMin:      optFloat(values[5]),
		SizeMax:      optFloat(values[6]),
		Price:        optFloat(values[10]),
	}
	if trade.Type == "" {
		trade.Type = "buy"
	}
	if trade.Owner == "" {
		trade.Owner = "unknown"
	}

	if v := optText(7); v != "" {
		if t, err := normalize.ParseDate(v); err == nil {
			trade.PublishedAt = &t
		}
	}
	if v := optText(8); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			trade.FiledAfterDays = &n
		}
	}

	trade.Raw = sanitizeRaw(optText(12))
	trade.CreatedAt = time.Now()
	if v := optText(13); v != "" {
		if t, err := normalize.ParseDate(v); err == nil {
			trade.CreatedAt = t
		}
	}

	normalizeSizeBounds(&trade)
	return trade, nil
}

// AssembleTradeFromScraped builds a canonical Trade from one keyed scraper
// row, synthesizing the raw audit blob from the fields that are not otherwise
// persisted. A missing type or owner stays empty here: the store defaults them
// on create only, so a re-scrape that omits them never overwrites stored values.
func AssembleTradeFromScraped(row parsers.ScrapedTradeRow) (models.Trade, error) {
	if row.TradeID == "" || row.PoliticianID == "" || row.IssuerID == "" || row.TradedAt == "" {
		return models.Trade{}, ErrMissingRequired
	}

	tradedAt, err := normalize.ParseDate(row.TradedAt)
	if err != nil {
		return models.Trade{}, fmt.Errorf("assembler: invalid tradedAt %q: %w", row.TradedAt, err)
	}

	trade := models.Trade{
		ID:             row.TradeID,
		PoliticianID:   row.PoliticianID,
		IssuerID:       row.IssuerID,
		TradedAt:       tradedAt,
		Type:           row.Type,
		Owner:          row.Owner,
		FiledAfterDays: row.FiledAfterDays,
		SizeMin:        row.SizeMin,
		SizeMax:        row.SizeMax,
		Price:          row.Price,
		SourceURL:      row.DetailURL,
		CreatedAt:      time.Now(),
	}
	if trade.FiledAfterDays != nil && *trade.FiledAfterDays < 0 {
		trade.FiledAfterDays = nil
	}
	if v := row.PublishedAt; v != "" {
		if t, err := normalize.ParseDate(v); err == nil {
			trade.PublishedAt = &t
		}
	}

	// Some scraper variants emit only the display text of the size bracket.
	if trade.SizeMin == nil && trade.SizeMax == nil && row.SizeText != "" {
		r := normalize.ParseSizeRange(row.SizeText)
		trade.SizeMin, trade.SizeMax = r.Min, r.Max
	}
	normalizeSizeBounds(&trade)

	// Re-embed the fields that normalization would otherwise lose, so the
	// original scrape stays recoverable from the stored record.
	raw, err := jsonit.Marshal(map[string]string{
		"politicianName": row.PoliticianName,
		"issuerName":     row.IssuerName,
		"sizeText":       row.SizeText,
		"ticker":         row.Ticker,
	})
	if err != nil {
		raw = []byte("{}")
	}
	trade.Raw = raw

	return trade, nil
}

// PoliticianFromScraped maps a scraper row to the referenced Politician.
func PoliticianFromScraped(row parsers.ScrapedTradeRow) models.Politician {
	p := models.Politician{ID: row.PoliticianID, Name: row.PoliticianName}
	if p.Name == "" {
		p.Name = "Unknown Politician"
	}
	if row.PoliticianChamber != "" {
		chamber := row.PoliticianChamber
		p.Chamber = &chamber
	}
	return p
}

// IssuerFromScraped maps a scraper row to the referenced Issuer.
func IssuerFromScraped(row parsers.ScrapedTradeRow) models.Issuer {
	iss := models.Issuer{ID: row.IssuerID, Name: row.IssuerName}
	if iss.Name == "" {
		iss.Name = "Unknown Issuer"
	}
	if row.Ticker != "" {
		ticker := row.Ticker
		iss.Ticker = &ticker
	}
	return iss
}

func optFloat(raw string) *float64 {
	if parsers.IsSQLNull(raw) {
		return nil
	}
	v := parsers.UnquoteSQLValue(raw)
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &n
}

// normalizeSizeBounds keeps size_min <= size_max when both sides are present.
func normalizeSizeBounds(t *models.Trade) {
	if t.SizeMin != nil && t.SizeMax != nil && *t.SizeMin > *t.SizeMax {
		t.SizeMin, t.SizeMax = t.SizeMax, t.SizeMin
	}
}

// sanitizeRaw keeps the audit blob opaque but well-formed: valid JSON passes
// through untouched, anything else becomes an empty object.
func sanitizeRaw(val string) json.RawMessage {
	if val != "" && jsonit.Valid([]byte(val)) {
		return json.RawMessage(val)
	}
	return json.RawMessage("{}")
}
