package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSQLDump(t *testing.T) {
	dump := `INSERT INTO trades (id, politician_id) VALUES
('t1', 'p1', 'i1', '2024-01-15', 'buy', 1000, 15000, NULL, 12, 'self', NULL, '', '{}', '2024-01-16 10:00:00'),
('t2', 'p2'),
('t3', 'p3', 'i3', '2024-02-01', 'sell; partial', 1000, 15000, NULL, 3, 'spouse', 12.5, '', '{}', '2024-02-02 10:00:00');
`
	tuples, err := ParseSQLDump(strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, tuples, 3)

	assert.Equal(t, "'t1'", tuples[0][0])
	assert.Len(t, tuples[0], 14)
	assert.Len(t, tuples[1], 2)
	// Semicolon inside a quoted value must not terminate the statement.
	assert.Equal(t, "'sell; partial'", tuples[2][4])
}

func TestParseSQLDumpQuotedValuesWord(t *testing.T) {
	// A literal "VALUES" inside a quoted string before the real keyword must
	// not be taken as the clause start.
	dump := `INSERT INTO t (a) /* 'VALUES' */ VALUES ('real');`
	tuples, err := ParseSQLDump(strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, tuples, 1)
	assert.Equal(t, []string{"'real'"}, tuples[0])
}

func TestParseSQLDumpErrors(t *testing.T) {
	_, err := ParseSQLDump(strings.NewReader("SELECT * FROM trades;"))
	assert.ErrorIs(t, err, ErrNoValuesClause)

	_, err = ParseSQLDump(strings.NewReader("INSERT INTO t VALUES ('a', 'b'"))
	assert.ErrorIs(t, err, ErrUnterminatedGroup)

	_, err = ParseSQLDump(strings.NewReader("INSERT INTO t VALUES x"))
	assert.Error(t, err)
}

func TestParseSQLDumpParenInsideQuotes(t *testing.T) {
	dump := `INSERT INTO t VALUES ('Acme (Holdings) Ltd', 'x');`
	tuples, err := ParseSQLDump(strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, tuples, 1)
	assert.Equal(t, "'Acme (Holdings) Ltd'", tuples[0][0])
}
