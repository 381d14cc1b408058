package matrixparser

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents removes combining marks: "NECESSITÀ" -> "NECESSITA".
// Transformers keep state, so a fresh chain is built per call.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// foldHeader is the comparison key for header names.
func foldHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimRight(h, ":")
	h = strings.ToUpper(foldAccents(h))
	return strings.Join(strings.Fields(h), " ")
}

// isAbsent reports whether a cell carries no data.
func isAbsent(cell string) bool {
	s := strings.TrimSpace(cell)
	return s == "" || strings.EqualFold(s, "nan")
}
