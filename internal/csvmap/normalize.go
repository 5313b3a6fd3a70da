// Package csvmap turns one vendor's CSV export (WooCommerce, Finnish locale)
// into import candidates: header normalization, delimiter sniffing, generic
// attribute-slot extraction and row mapping.
package csvmap

import (
	"regexp"
	"strings"
	"unicode"
)

// NormalizedRow maps a canonical lowercase header to its trimmed cell value.
// It only exists during import and is discarded after mapping.
type NormalizedRow map[string]string

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeHeader canonicalizes a CSV header: strips a leading BOM, turns
// non-breaking spaces into spaces, collapses whitespace runs, trims and
// lowercases. Idempotent and never fails.
func NormalizeHeader(raw string) string {
	s := strings.TrimPrefix(raw, "\uFEFF")
	s = strings.ReplaceAll(s, "\u00A0", " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// DetectDelimiter guesses between ';' and ',' by counting both on the first
// line of the sample. Semicolon wins only when it is strictly more frequent;
// ties resolve to comma. This is a best-effort heuristic, not a parser: a
// quoted header containing delimiters can fool it.
func DetectDelimiter(sample string) rune {
	firstLine := sample
	if i := strings.IndexAny(sample, "\r\n"); i >= 0 {
		firstLine = sample[:i]
	}
	commas := strings.Count(firstLine, ",")
	semis := strings.Count(firstLine, ";")
	if semis > commas {
		return ';'
	}
	return ','
}

// ToNormalizedRecord builds a NormalizedRow from parallel header and value
// slices. Headers are normalized, values trimmed; a header without a value
// maps to the empty string.
func ToNormalizedRecord(headers, values []string) NormalizedRow {
	row := make(NormalizedRow, len(headers))
	for i, h := range headers {
		v := ""
		if i < len(values) {
			v = strings.TrimSpace(values[i])
		}
		row[NormalizeHeader(h)] = v
	}
	return row
}

// Get returns the trimmed value for a normalized header key.
func (r NormalizedRow) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// NormalizePriceString strips the euro sign and whitespace and, when the
// string uses a comma as its only decimal separator, converts it to a dot.
// Anything else passes through unchanged; thousands separators are not
// handled.
func NormalizePriceString(in string) string {
	s := strings.Map(func(r rune) rune {
		if r == '€' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, in)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}

// CleanAttributeValue undoes the export's own escaping of commas and
// semicolons inside attribute values and collapses whitespace.
func CleanAttributeValue(raw string) string {
	s := strings.ReplaceAll(raw, `\,`, ",")
	s = strings.ReplaceAll(s, `\;`, ";")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FirstCommaItem takes the first non-empty item out of a comma-joined list,
// e.g. one image URL out of the "kuvat" column or one EAN out of an
// attribute value.
func FirstCommaItem(s string) string {
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			return p
		}
	}
	return ""
}
