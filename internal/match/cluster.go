// Package match clusters descriptions of publications that arrive from
// different sources — a curated library, alert emails, and the
// known-publication history — into one record per real-world publication.
package match

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/alert"
	"github.com/matsen/pubsieve/internal/history"
	"github.com/matsen/pubsieve/internal/pub"
)

// ErrEmptyCluster is returned on an attempt to create a cluster with
// neither a library pub nor any pub alerts.
var ErrEmptyCluster = errors.New("attempt to create an empty cluster")

// Cluster is a collection of pubs we believe are all the same publication:
// at most one library pub, any number of alert pairings, and at most one
// historical record.
//
// The canonical identity fields come from the library pub when there is
// one, otherwise field-by-field from the first pairing that supplies a
// non-empty value. Once set they are never overwritten; a pairing whose DOI
// disagrees is reported for human curation, not auto-resolved.
type Cluster struct {
	libPub     *pub.Pub
	pairings   []*alert.PubAlert
	historical *history.Record

	canonicalDOI         string
	canonicalTitle       string
	canonicalFirstAuthor string
}

// NewCluster creates a cluster from an optional library pub and any number
// of pairings. Clusters are never empty.
func NewCluster(libPub *pub.Pub, pairings []*alert.PubAlert, log zerolog.Logger) (*Cluster, error) {
	if libPub == nil && len(pairings) == 0 {
		return nil, ErrEmptyCluster
	}
	c := &Cluster{}
	if libPub != nil {
		c.libPub = libPub
		c.canonicalDOI = libPub.CanonicalDOI
		c.canonicalTitle = libPub.CanonicalTitle
		c.canonicalFirstAuthor = libPub.CanonicalFirstAuthor
	}
	for _, pa := range pairings {
		c.AddPairing(pa, log)
	}
	return c, nil
}

// AddPairing appends a pairing and back-fills any canonical field the
// cluster does not have yet. A DOI that disagrees with the cluster's is
// logged with the title and both values, and the existing DOI kept.
func (c *Cluster) AddPairing(pa *alert.PubAlert, log zerolog.Logger) {
	c.pairings = append(c.pairings, pa)

	if doi := pa.Pub.CanonicalDOI; doi != "" {
		switch {
		case c.canonicalDOI == "":
			c.canonicalDOI = doi
		case c.canonicalDOI != doi:
			log.Warn().
				Str("title", c.canonicalTitle).
				Str("doi1", c.canonicalDOI).
				Str("doi2", doi).
				Msg("DOIs disagree for matched publication")
		}
	}

	// Titles and first authors are really noisy; everything here has
	// already been matched on title or DOI, so first non-empty wins with
	// no disagreement check.
	if c.canonicalTitle == "" && pa.Pub.CanonicalTitle != "" {
		c.canonicalTitle = pa.Pub.CanonicalTitle
	}
	if c.canonicalFirstAuthor == "" && pa.Pub.CanonicalFirstAuthor != "" {
		c.canonicalFirstAuthor = pa.Pub.CanonicalFirstAuthor
	}
}

// IsNew reports whether this publication was previously unknown: it has no
// library pub, only alerts.
func (c *Cluster) IsNew() bool { return c.libPub == nil }

// IsKnown reports whether we have seen this publication before, in the
// library or in the history.
func (c *Cluster) IsKnown() bool { return c.libPub != nil || c.historical != nil }

// LibPub returns the library pub, or nil when the publication is not in
// the library.
func (c *Cluster) LibPub() *pub.Pub { return c.libPub }

// Pairings returns the alert pairings in arrival order.
func (c *Cluster) Pairings() []*alert.PubAlert { return c.pairings }

// Historical returns the attached history record, or nil.
func (c *Cluster) Historical() *history.Record { return c.historical }

// SetHistorical attaches the history record for this publication.
func (c *Cluster) SetHistorical(rec *history.Record) { c.historical = rec }

// CanonicalDOI returns the cluster's canonical DOI, "" when unknown.
func (c *Cluster) CanonicalDOI() string { return c.canonicalDOI }

// CanonicalTitle returns the cluster's canonical title key.
func (c *Cluster) CanonicalTitle() string { return c.canonicalTitle }

// CanonicalFirstAuthor returns the canonical first-author surname, "" when
// unknown.
func (c *Cluster) CanonicalFirstAuthor() string { return c.canonicalFirstAuthor }

// Title returns the raw title: the library pub's when present, else the
// first pairing that has one.
func (c *Cluster) Title() string {
	if c.libPub != nil {
		return c.libPub.Title
	}
	for _, pa := range c.pairings {
		if pa.Pub.Title != "" {
			return pa.Pub.Title
		}
	}
	return ""
}

// Authors returns the raw author string from the library pub or the first
// pairing that has one.
func (c *Cluster) Authors() string {
	if c.libPub != nil {
		return c.libPub.Authors
	}
	for _, pa := range c.pairings {
		if pa.Pub.Authors != "" {
			return pa.Pub.Authors
		}
	}
	return ""
}

// DOI returns the publication's DOI: the library pub's, else the first
// pairing's.
func (c *Cluster) DOI() string {
	if c.libPub != nil && c.libPub.CanonicalDOI != "" {
		return c.libPub.CanonicalDOI
	}
	for _, pa := range c.pairings {
		if pa.Pub.CanonicalDOI != "" {
			return pa.Pub.CanonicalDOI
		}
	}
	return ""
}

// URL returns the publication's URL in its native location.
func (c *Cluster) URL() string {
	if c.libPub != nil {
		return c.libPub.URL
	}
	for _, pa := range c.pairings {
		if pa.Pub.URL != "" {
			return pa.Pub.URL
		}
	}
	return ""
}
