package dataset

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// PersonDir maps a person name to its LFW directory name: ASCII letters,
// words joined by underscores ("José María Aznar" -> "Jose_Maria_Aznar").
func PersonDir(name string) string {
	name = RemoveDiacritics(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "_")
}
