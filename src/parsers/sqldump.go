package parsers

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Errors returned when a dump file is structurally unusable. These abort the
// run before any records are processed; malformed individual tuples do not.
var (
	ErrNoValuesClause    = errors.New("sqldump: no VALUES clause found")
	ErrUnterminatedGroup = errors.New("sqldump: unterminated value group")
)

// ParseSQLDump reads a dump containing a single INSERT ... VALUES (...),(...);
// statement and returns one raw field slice per value group. Instead of a
// greedy "first VALUES to last )" regex, the dump is walked with an explicit
// grammar: locate the VALUES keyword, then read parenthesized groups with a
// quote-aware scanner. Semicolons and parentheses inside quoted values are
// handled correctly.
func ParseSQLDump(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sqldump: reading input: %w", err)
	}
	content := string(data)

	idx := findValuesKeyword(content)
	if idx < 0 {
		return nil, ErrNoValuesClause
	}
	rest := content[idx:]

	var tuples [][]string
	pos := 0
	for {
		// Skip separators between groups: whitespace and commas. A semicolon
		// (or end of input) terminates the statement.
		for pos < len(rest) {
			c := rest[pos]
			if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ',' {
				pos++
				continue
			}
			break
		}
		if pos >= len(rest) || rest[pos] == ';' {
			break
		}
		if rest[pos] != '(' {
			return nil, fmt.Errorf("sqldump: unexpected character %q at offset %d, want '('", rest[pos], idx+pos)
		}

		group, next, err := readGroup(rest, pos)
		if err != nil {
			return nil, err
		}
		tuples = append(tuples, SplitTupleFields(group))
		pos = next
	}

	if len(tuples) == 0 {
		return nil, ErrNoValuesClause
	}
	return tuples, nil
}

// findValuesKeyword returns the offset just past the first VALUES keyword that
// appears outside of any quoted span, or -1.
func findValuesKeyword(content string) int {
	inQuotes := false
	var quoteChar byte
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if inQuotes {
			if ch == quoteChar {
				if i+1 < len(content) && content[i+1] == quoteChar {
					i++
				} else {
					inQuotes = false
				}
			}
			continue
		}
		if ch == '\'' || ch == '"' {
			inQuotes = true
			quoteChar = ch
			continue
		}
		if (ch == 'V' || ch == 'v') && i+6 <= len(content) &&
			strings.EqualFold(content[i:i+6], "VALUES") {
			return i + 6
		}
	}
	return -1
}

// readGroup reads one parenthesized value group starting at the '(' at start.
// It returns the group's inner text and the offset just past the closing ')'.
// Nested parentheses are not part of the dump format; parentheses inside
// quoted values are treated as literals.
func readGroup(s string, start int) (string, int, error) {
	inQuotes := false
	var quoteChar byte
	for i := start + 1; i < len(s); i++ {
		ch := s[i]
		if inQuotes {
			if ch == quoteChar {
				if i+1 < len(s) && s[i+1] == quoteChar {
					i++
				} else {
					inQuotes = false
				}
			}
			continue
		}
		switch ch {
		case '\'', '"':
			inQuotes = true
			quoteChar = ch
		case ')':
			return s[start+1 : i], i + 1, nil
		}
	}
	return "", 0, ErrUnterminatedGroup
}
