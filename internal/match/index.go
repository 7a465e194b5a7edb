package match

import (
	"sort"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/alert"
	"github.com/matsen/pubsieve/internal/canonical"
	"github.com/matsen/pubsieve/internal/history"
	"github.com/matsen/pubsieve/internal/pub"
)

// Index resolves every incoming description of a publication to an
// existing cluster or a new one. It lives for one run.
//
// Ingestion order matters: library pubs are seeded first, alerts are
// resolved against them one at a time, and the history is overlaid last.
type Index struct {
	byCanonicalDOI   map[string]*Cluster
	byCanonicalTitle map[string]*Cluster
	titles           titleIndex

	// Canonical titles reviewed as acceptable duplicates; suppresses the
	// duplicate-title warning for external data the curator has vetted.
	okDupTitles map[string]bool

	log zerolog.Logger
}

// NewIndex creates an empty index. okDupTitles is the raw-title allow-list
// for the duplicate-title warning; titles are canonicalized here.
func NewIndex(okDupTitles []string, log zerolog.Logger) *Index {
	idx := &Index{
		byCanonicalDOI:   make(map[string]*Cluster),
		byCanonicalTitle: make(map[string]*Cluster),
		okDupTitles:      make(map[string]bool),
		log:              log,
	}
	for _, t := range okDupTitles {
		idx.okDupTitles[canonical.Title(t)] = true
	}
	return idx
}

// SeedLibrary creates one cluster per library pub. Library pubs are never
// merged against each other: a duplicate title or DOI among them is an
// external data-quality problem, so it is warned about and loading
// continues.
func (idx *Index) SeedLibrary(pubs []*pub.Pub) {
	for _, p := range pubs {
		c, err := NewCluster(p, nil, idx.log)
		if err != nil {
			// Cannot happen: p is non-nil.
			continue
		}
		idx.add(c)
	}
}

// add registers a cluster under its canonical DOI and title.
func (idx *Index) add(c *Cluster) {
	if doi := c.CanonicalDOI(); doi != "" {
		if _, dup := idx.byCanonicalDOI[doi]; dup {
			idx.log.Warn().
				Str("doi", doi).
				Str("title", c.Title()).
				Msg("DOI in library more than once")
		}
		idx.byCanonicalDOI[doi] = c
	}
	if title := c.CanonicalTitle(); title != "" {
		if _, dup := idx.byCanonicalTitle[title]; dup && !idx.okDupTitles[title] {
			idx.log.Warn().
				Str("title", c.Title()).
				Msg("title in library more than once")
		}
		idx.byCanonicalTitle[title] = c
		idx.titles.Insert(title)
	}
}

// AddPubAlerts resolves each pairing against the index in order, merging it
// into an existing cluster or starting a new one.
//
// Lookup order, each step short-circuiting on success:
//  1. canonical DOI,
//  2. canonical title,
//  3. for a truncation-marked title, the first stored title extending it,
//  4. for a full title long enough to be the un-truncated form of a title
//     stored earlier in this run, the stored title sharing its prefix — in
//     which case the stored cluster is re-keyed to the longer title,
//  5. otherwise a new cluster.
func (idx *Index) AddPubAlerts(pas []*alert.PubAlert) {
	for _, pa := range pas {
		var c *Cluster
		if doi := pa.Pub.CanonicalDOI; doi != "" {
			c = idx.byCanonicalDOI[doi]
		}
		if c == nil && pa.Pub.CanonicalTitle != "" {
			c = idx.byCanonicalTitle[pa.Pub.CanonicalTitle]
		}
		if c == nil {
			if canonical.IsTruncatedTitle(pa.Pub.Title) {
				// The marker is not alphanumeric, so the canonical form of a
				// truncated title is already the bare prefix.
				if full, ok := idx.titles.FirstWithPrefix(pa.Pub.CanonicalTitle); ok {
					c = idx.byCanonicalTitle[full]
				}
			} else if utf8.RuneCountInString(pa.Pub.Title) >= alert.MinTruncatedTitleLen {
				// No match, and the title is long enough that an alert
				// earlier in this run may have carried its truncated form.
				// If a stored title shares the prefix, treat them as the
				// same publication (possibly wrongly, an accepted risk)
				// and move the cluster to the longer title.
				prefix := pa.Pub.CanonicalTitle
				if len(prefix) > alert.MinTruncatedTitleLen {
					prefix = prefix[:alert.MinTruncatedTitleLen]
				}
				if short, ok := idx.titles.FirstWithPrefix(prefix); ok {
					c = idx.byCanonicalTitle[short]
					idx.rekey(c, short, pa.Pub.CanonicalTitle)
				}
			}
		}
		if c != nil {
			c.AddPairing(pa, idx.log)
		} else {
			nc, err := NewCluster(nil, []*alert.PubAlert{pa}, idx.log)
			if err != nil {
				continue
			}
			idx.add(nc)
		}
	}
}

// rekey moves a cluster from one canonical-title key to another, in the
// title map, the sorted title list, and the cluster itself.
func (idx *Index) rekey(c *Cluster, oldTitle, newTitle string) {
	delete(idx.byCanonicalTitle, oldTitle)
	idx.titles.Remove(oldTitle)
	idx.byCanonicalTitle[newTitle] = c
	idx.titles.Insert(newTitle)
	c.canonicalTitle = newTitle
}

// OverlayHistory attaches records from the previous run's store to the
// clusters that describe the same publication, by DOI then canonical
// title. The current library is ground truth: a matched record whose
// cluster is in the library is forced to the in-library state, whatever
// was recorded historically. Records matching no cluster describe
// publications not relevant this run and are dropped.
func (idx *Index) OverlayHistory(store *history.Store) {
	for _, rec := range store.Records() {
		var c *Cluster
		if doi := rec.DOI(); doi != "" {
			c = idx.byCanonicalDOI[doi]
		}
		if c == nil && rec.CanonicalTitle() != "" {
			c = idx.byCanonicalTitle[rec.CanonicalTitle()]
		}
		if c == nil {
			continue
		}
		c.SetHistorical(rec)
		if c.LibPub() != nil {
			rec.State = history.StateInLib
		}
	}
}

// ClustersWithAlerts returns every cluster with at least one pairing, in
// canonical title order so reports come out the same way every run.
func (idx *Index) ClustersWithAlerts() []*Cluster {
	var out []*Cluster
	for _, c := range idx.byCanonicalTitle {
		if len(c.Pairings()) > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CanonicalTitle() < out[j].CanonicalTitle()
	})
	return out
}

// ClustersWithoutHistory returns the clusters with no historical record:
// the publications observed for the first time this run.
func (idx *Index) ClustersWithoutHistory() []*Cluster {
	var out []*Cluster
	for _, c := range idx.byCanonicalTitle {
		if c.Historical() == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CanonicalTitle() < out[j].CanonicalTitle()
	})
	return out
}

// NewHistoryRecords converts every cluster without a historical record into
// a fresh one: in-library when the cluster is in the library, new when any
// non-excluded alert reported it, and excluded (annotated with the first
// reporting search) when every alert that produced it is on the exclude
// list.
func (idx *Index) NewHistoryRecords(excludes *alert.ExcludeSet) []*history.Record {
	var recs []*history.Record
	for _, c := range idx.ClustersWithoutHistory() {
		rec := history.NewRecord()
		rec.SetTitle(c.Title())
		rec.Authors = c.Authors()
		rec.SetDOI(c.DOI(), idx.log)

		switch {
		case c.LibPub() != nil:
			rec.State = history.StateInLib
		case hasNonExcluded(c, excludes):
			rec.State = history.StateNew
		default:
			rec.State = history.StateExclude
			rec.Annotation = "only reported by excluded alert: " + c.Pairings()[0].Alert.Search
		}
		recs = append(recs, rec)
	}
	return recs
}

func hasNonExcluded(c *Cluster, excludes *alert.ExcludeSet) bool {
	for _, pa := range c.Pairings() {
		if !excludes.Contains(pa.Alert) {
			return true
		}
	}
	return false
}

// Len returns the number of clusters keyed by title.
func (idx *Index) Len() int { return len(idx.byCanonicalTitle) }
