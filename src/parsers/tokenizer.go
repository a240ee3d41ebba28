package parsers

import "strings"

// SplitTupleFields splits the inside of one SQL value group (the caller must
// strip the outer parentheses) into raw field strings. Commas inside quoted
// spans are literal; a doubled quote character inside a quoted span is an
// escaped quote, not a terminator. Unbalanced quotes are not detected: the
// scan runs to end-of-string and returns whatever accumulated.
func SplitTupleFields(entry string) []string {
	var values []string
	var current strings.Builder
	inQuotes := false
	var quoteChar byte

	for i := 0; i < len(entry); i++ {
		ch := entry[i]
		switch {
		case !inQuotes && (ch == '\'' || ch == '"'):
			inQuotes = true
			quoteChar = ch
			current.WriteByte(ch)
		case inQuotes && ch == quoteChar:
			if i+1 < len(entry) && entry[i+1] == quoteChar {
				current.WriteByte(ch)
				current.WriteByte(ch)
				i++ // skip the escaped quote
			} else {
				inQuotes = false
				current.WriteByte(ch)
			}
		case !inQuotes && ch == ',':
			values = append(values, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}

	// A final empty fragment (trailing comma) is dropped; empty fields in the
	// middle of the tuple are kept.
	if last := strings.TrimSpace(current.String()); last != "" {
		values = append(values, last)
	}
	return values
}

// UnquoteSQLValue strips a matching pair of SQL quotes from a raw field and
// collapses doubled quote characters back to single ones. Unquoted fields are
// returned trimmed but otherwise untouched.
func UnquoteSQLValue(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		q := s[0]
		if (q == '\'' || q == '"') && s[len(s)-1] == q {
			inner := s[1 : len(s)-1]
			return strings.ReplaceAll(inner, string(q)+string(q), string(q))
		}
	}
	return s
}

// IsSQLNull reports whether a raw field is the SQL NULL literal or empty.
func IsSQLNull(raw string) bool {
	s := strings.TrimSpace(raw)
	return s == "" || strings.EqualFold(s, "NULL")
}
