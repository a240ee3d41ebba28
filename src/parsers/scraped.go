package parsers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ScrapedTradeRow is one flat object from the scraper's JSON output.
// Numeric fields are pointers because the scraper emits null when a cell was
// absent; sizeText is kept so the size range can be re-derived when the
// scraper variant did not normalize it.
type ScrapedTradeRow struct {
	TradeID           string   `json:"tradeId"`
	PoliticianID      string   `json:"politicianId"`
	PoliticianName    string   `json:"politicianName"`
	PoliticianChamber string   `json:"politicianChamber"`
	IssuerID          string   `json:"issuerId"`
	IssuerName        string   `json:"issuerName"`
	Ticker            string   `json:"ticker"`
	PublishedAt       string   `json:"publishedAt"`
	TradedAt          string   `json:"tradedAt"`
	FiledAfterDays    *int64   `json:"filedAfterDays"`
	Owner             string   `json:"owner"`
	Type              string   `json:"type"`
	SizeMin           *float64 `json:"sizeMin"`
	SizeMax           *float64 `json:"sizeMax"`
	SizeText          string   `json:"sizeText"`
	Price             *float64 `json:"price"`
	DetailURL         string   `json:"detailUrl"`
}

// LoadScrapedTrades decodes a scraper output file (a JSON array of rows).
func LoadScrapedTrades(path string) ([]ScrapedTradeRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scraped: reading %s: %w", path, err)
	}
	var rows []ScrapedTradeRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("scraped: decoding %s: %w", path, err)
	}
	return rows, nil
}

// FindLatestScrapedFile returns the lexically greatest trades_scraped_*.json
// in dir. The scraper embeds a sortable timestamp in the name, so lexical
// order is chronological order.
func FindLatestScrapedFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("scraped: reading directory %s: %w", dir, err)
	}
	var matches []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "trades_scraped_") && strings.HasSuffix(name, ".json") {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("scraped: no trades_scraped_*.json files found in %s", dir)
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[len(matches)-1]), nil
}
