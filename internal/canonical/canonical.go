// Package canonical converts messy publication identifiers into the
// canonical comparison keys used for matching.
//
// Canonical strings are all lower case with every character that is not a
// letter or digit removed. Canonical DOIs are the bare DOI, lower case,
// with any URL or "doi:" prefix stripped.
package canonical

import (
	"strings"
	"unicode"

	"github.com/rs/zerolog"
)

// TruncationMarker is appended by Google Scholar when a title exceeds its
// display width: a non-breaking space followed by an ellipsis.
const TruncationMarker = " …"

// doiStart is the prefix every DOI begins with. The DOI spec allows slashes
// inside the DOI itself, so URL prefixes are located by finding this
// substring rather than by splitting on "/".
const doiStart = "10."

// Title reduces a raw title (or any messy string) to its canonical form:
// lower case, non-alphanumerics removed. Letters and digits from any script
// are kept; a title does not have to contain ASCII to have an identity.
// Canonicalization is idempotent.
func Title(messy string) string {
	var b strings.Builder
	b.Grow(len(messy))
	for _, r := range messy {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// DOI reduces a raw DOI to canonical form. Input may be a bare DOI, a
// "doi:" prefixed string, or a full resolver URL, in any case mix:
//
//	10.1016/j.iheduc.2008.03.001
//	doi:10.1016/j.iheduc.2008.03.001
//	https://doi.org/10.1016/j.iheduc.2008.03.001
//
// All of those become "10.1016/j.iheduc.2008.03.001". An empty input stays
// empty. A non-empty input that contains no "10." is not a DOI at all; it
// is logged as a data-quality warning and replaced with the empty string,
// which downstream code treats as "no DOI".
func DOI(raw string, log zerolog.Logger) string {
	if raw == "" {
		return ""
	}
	// DOIs are officially case insensitive.
	lower := strings.ToLower(raw)
	start := strings.Index(lower, doiStart)
	if start == -1 {
		log.Warn().
			Str("value", raw).
			Msg("DOI field not empty, but not a DOI; replacing with empty string")
		return ""
	}
	return lower[start:]
}

// IsCanonicalDOI reports whether value is already a canonical DOI: non-empty
// and starting with "10.".
func IsCanonicalDOI(value string) bool {
	return strings.HasPrefix(value, doiStart)
}

// IsTruncatedTitle reports whether a raw title carries the Scholar
// truncation marker.
func IsTruncatedTitle(title string) bool {
	return strings.HasSuffix(title, TruncationMarker)
}

// StripTruncationMarker removes the truncation marker, and any space
// directly before it, from the end of a raw title. Titles without the
// marker are returned unchanged.
func StripTruncationMarker(title string) string {
	trimmed, ok := strings.CutSuffix(title, TruncationMarker)
	if !ok {
		return title
	}
	return strings.TrimRight(trimmed, " ")
}
