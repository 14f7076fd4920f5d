// Package slug turns product and category names into URL path segments.
package slug

import (
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Ampersands read as "and" in catalog names ("Pens & Writing").
	// Common Latin accents fold to their base letter.
	folder = strings.NewReplacer(
		"&", " and ",
		"à", "a", "á", "a", "â", "a", "ä", "a", "å", "a",
		"ç", "c",
		"è", "e", "é", "e", "ê", "e", "ë", "e",
		"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
		"ñ", "n",
		"ò", "o", "ó", "o", "ô", "o", "ö", "o", "ø", "o",
		"ù", "u", "ú", "u", "û", "u", "ü", "u",
		"ß", "ss",
	)
)

// Generate lowercases name, folds accents, and joins the remaining
// alphanumeric runs with single hyphens.
//
//	"Premium Fountain Pen Collection" -> "premium-fountain-pen-collection"
//	"Pens & Writing"                  -> "pens-and-writing"
func Generate(name string) string {
	s := folder.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
