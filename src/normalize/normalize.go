package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SizeRange is a disclosed trade's bracketed dollar-value estimate. Absent
// sides stay nil, never zero.
type SizeRange struct {
	Min *float64
	Max *float64
}

var nonNumericRe = regexp.MustCompile(`[^0-9.]`)

// ParseSizeRange converts disclosure size text like "1K–5K" or
// "1,000 - 5,000" into numeric bounds. The text is uppercased, stripped of
// commas and spaces, and split on an en-dash or hyphen; each side's K/M/B
// suffix scales the number.
func ParseSizeRange(text string) SizeRange {
	clean := strings.ToUpper(strings.NewReplacer(" ", "", ",", "").Replace(text))
	var left, right string
	if i := strings.IndexAny(clean, "–-"); i >= 0 {
		// The en-dash is multi-byte; split on whichever separator came first.
		if strings.HasPrefix(clean[i:], "–") {
			left, right = clean[:i], clean[i+len("–"):]
		} else {
			left, right = clean[:i], clean[i+1:]
		}
	} else {
		left = clean
	}
	return SizeRange{Min: parseSizeSide(left), Max: parseSizeSide(right)}
}

func parseSizeSide(v string) *float64 {
	if v == "" {
		return nil
	}
	factor := 1.0
	switch {
	case strings.HasSuffix(v, "K"):
		factor = 1_000
	case strings.HasSuffix(v, "M"):
		factor = 1_000_000
	case strings.HasSuffix(v, "B"):
		factor = 1_000_000_000
	}
	digits := nonNumericRe.ReplaceAllString(v, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil
	}
	n *= factor
	return &n
}

// CleanNumericValue normalizes currency/number text to a float. The literals
// "n/a" and "new" mean zero in the source data; anything unparseable also
// falls back to zero rather than failing the row. This conflates "known zero"
// with "unparseable", a long-standing property of the dataset.
func CleanNumericValue(value string) float64 {
	v := strings.TrimSpace(value)
	if v == "" || v == "n/a" || v == "new" {
		return 0
	}
	cleaned := strings.NewReplacer("$", "", ",", "", "+", "").Replace(v)
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return n
}

var dateLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01-02 15:04:05.999999-07:00",
}

// ParseDate parses the ISO-like date strings the sources use. Callers must
// reject records whose required dates fail to parse.
func ParseDate(dateStr string) (time.Time, error) {
	s := strings.TrimSpace(dateStr)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ExtractIDFromURL takes the trailing path segment of a link as the referenced
// entity's ID (the scraping target encodes IDs that way).
func ExtractIDFromURL(rawURL string) string {
	s := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		s = u.Path
	}
	s = strings.TrimSuffix(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// institutionRe mirrors the source dataset's keyword list. Plain substring
// containment, no word boundaries: false positives and negatives are accepted.
var institutionRe = regexp.MustCompile(`(?i)LLC|LP|LLP|Corp|Inc|Ltd|Partners|Capital|Fund|Management|Holdings|Group|Advisors|Associates|Trust|Bank|Financial|Insurance|Mutual|Asset|Equity|Venture|Private|Hedge`)

// IsInstitutionName reports whether an owner display name looks like a legal
// entity rather than a person.
func IsInstitutionName(name string) bool {
	return institutionRe.MatchString(name)
}
