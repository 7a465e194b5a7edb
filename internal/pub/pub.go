// Package pub defines the common representation of a single described
// publication, regardless of which source described it.
package pub

import (
	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/canonical"
)

// Pub is one source's description of a publication. Pubs come from library
// exports, alert parsers, or the known-publication history, in whatever
// level of detail that source has.
//
// The canonical fields are derived and must never be set independently of
// their raw counterparts: use SetTitle and SetDOI.
type Pub struct {
	Title          string // unmodified title string
	CanonicalTitle string // lower case, non-alphanumerics removed
	CanonicalDOI   string // bare DOI, lower case; "" means no DOI
	URL            string

	Authors string // author list, in whatever format the source uses
	// Last name of the first author, canonicalized. Extraction rules differ
	// per source format, so callers supply it alongside the raw string.
	CanonicalFirstAuthor string

	Year string // publication year, "" or "unknown" when missing
	Ref  string // journal reference string, when the source gives one

	// Library-sourced fields. Alert parsers never populate these.
	Tags      []string
	EntryDate string // date added to the library, YYYY-MM-DD
}

// SetTitle sets the raw title and re-derives the canonical title. The two
// are always updated together.
func (p *Pub) SetTitle(title string) {
	p.Title = title
	p.CanonicalTitle = canonical.Title(title)
}

// SetAuthors sets the raw author string and the canonical first-author
// surname. Both are supplied together because first-author extraction
// cannot be derived generically from the raw string.
func (p *Pub) SetAuthors(authors, canonicalFirstAuthor string) {
	p.Authors = authors
	p.CanonicalFirstAuthor = canonicalFirstAuthor
}

// SetDOI canonicalizes raw and stores the result. A malformed non-empty
// value is logged through log and stored as "" (no DOI).
func (p *Pub) SetDOI(raw string, log zerolog.Logger) {
	p.CanonicalDOI = canonical.DOI(raw, log)
}
