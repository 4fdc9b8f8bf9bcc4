package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSlug replaces names that contain no letters or digits.
const DefaultSlug = "brand"

// Slugify lower-cases name, folds accented letters to ASCII and collapses
// every run of other characters into a single "-".
func Slugify(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	if b.Len() == 0 {
		return DefaultSlug
	}
	return b.String()
}

// ArchiveKey is the record key of the merged media archive.
func ArchiveKey(brandName string) string {
	return Slugify(brandName) + "_full_media.zip"
}

// ManifestKey is the record key of the media item spreadsheet.
func ManifestKey(brandName string) string {
	return Slugify(brandName) + "_media_items.xlsx"
}
