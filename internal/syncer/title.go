package syncer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und, cases.NoLower)

// DeriveTitle turns a document filename into a human-readable title:
// the_great_gatsby.pdf becomes "The Great Gatsby".
func DeriveTitle(filename, ext string) string {
	stem := filename
	if len(stem) >= len(ext) && strings.EqualFold(stem[len(stem)-len(ext):], ext) {
		stem = stem[:len(stem)-len(ext)]
	}
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	words := strings.Fields(stem)
	if len(words) == 0 {
		return filename
	}
	return titleCaser.String(strings.Join(words, " "))
}
