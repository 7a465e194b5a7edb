// Package library loads curated publication libraries from export files.
package library

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/pub"
)

// Reader is a loaded publication library. Besides the pubs themselves it
// can generate links into the library's online version, which the curation
// report uses.
type Reader interface {
	// ServiceName names the library service, e.g. "Zotero".
	ServiceName() string
	// Pubs returns every publication in the library, in export order.
	Pubs() []*pub.Pub
	// PubURL returns the online library URL for one of this library's
	// pubs, or "" when no link can be made.
	PubURL(p *pub.Pub) string
}

// Open loads the library export at path. libType selects the export
// format; "zotero" is the only format currently supported. onlineURL is
// the base URL of the library's online version.
func Open(libType, path, onlineURL string, log zerolog.Logger) (Reader, error) {
	switch libType {
	case "zotero":
		return LoadZotero(path, onlineURL, log)
	default:
		return nil, fmt.Errorf("unknown library type %q", libType)
	}
}
