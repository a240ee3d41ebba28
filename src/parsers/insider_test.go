package parsers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/insiderflow/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	m.Run()
}

func TestParseInsiderCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"ticker,company_name,owner_name,Title,transaction_date,trade_date,transaction_type,last_price,Qty,shares_held,Owned,Value",
		"AAPL,Apple Inc,John Smith,CEO,2024-01-15,2024-01-14,P - Purchase,$185.50,1000,50000,0.01%,\"$185,500\"",
		",Missing Ticker Co,Jane Doe,,2024-01-16,,S - Sale,,100,,,",
		"MSFT,Microsoft Corp,Vanguard Group,,2024-01-17,,P - Purchase,$400.00,500,,,\"$200,000\"",
	}, "\n")

	rows, dropped, err := ParseInsiderCSV(strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	require.Len(t, rows, 2)

	assert.Equal(t, "AAPL", rows[0].Ticker)
	assert.Equal(t, "John Smith", rows[0].OwnerName)
	assert.Equal(t, "CEO", rows[0].Title)
	assert.Equal(t, "$185,500", rows[0].Value)
	assert.Equal(t, "MSFT", rows[1].Ticker)
}

func TestParseInsiderCSVMissingColumn(t *testing.T) {
	csvData := "ticker,company_name\nAAPL,Apple Inc\n"
	_, _, err := ParseInsiderCSV(strings.NewReader(csvData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner_name")
}

func TestFindLatestScrapedFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"trades_scraped_2024-01-01.json",
		"trades_scraped_2024-03-15.json",
		"trades_scraped_2024-02-10.json",
		"unrelated.json",
	} {
		require.NoError(t, writeFile(dir, name))
	}

	got, err := FindLatestScrapedFile(dir)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "trades_scraped_2024-03-15.json"))

	_, err = FindLatestScrapedFile(t.TempDir())
	assert.Error(t, err)
}

func writeFile(dir, name string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644)
}
