package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTupleFields(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  []string
	}{
		{
			name:  "plain fields",
			entry: "'abc123', 'def456', 42",
			want:  []string{"'abc123'", "'def456'", "42"},
		},
		{
			name:  "comma inside quotes",
			entry: "'Smith, Jane', 'buy'",
			want:  []string{"'Smith, Jane'", "'buy'"},
		},
		{
			name:  "escaped quote inside quotes",
			entry: "'O''Brien', 'sell'",
			want:  []string{"'O''Brien'", "'sell'"},
		},
		{
			name:  "empty middle field kept",
			entry: "'a', , 'c'",
			want:  []string{"'a'", "", "'c'"},
		},
		{
			name:  "trailing empty fragment dropped",
			entry: "'a', 'b',",
			want:  []string{"'a'", "'b'"},
		},
		{
			name:  "double quoted field",
			entry: `"hello, world", 1`,
			want:  []string{`"hello, world"`, "1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitTupleFields(tt.entry))
		})
	}
}

func TestUnquoteSQLValue(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"'abc'", "abc"},
		{"'O''Brien'", "O'Brien"},
		{`"quoted"`, "quoted"},
		{"42", "42"},
		{"  'padded'  ", "padded"},
		{"'unterminated", "'unterminated"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UnquoteSQLValue(tt.raw), "input %q", tt.raw)
	}
}

func TestIsSQLNull(t *testing.T) {
	assert.True(t, IsSQLNull("NULL"))
	assert.True(t, IsSQLNull("null"))
	assert.True(t, IsSQLNull("  "))
	assert.False(t, IsSQLNull("'NULL'"))
	assert.False(t, IsSQLNull("0"))
}
