// Package history persists the curation decisions made in prior runs, so a
// new run can tell previously-seen publications from genuinely new ones.
//
// The store is a tab-separated table with a header row and one row per
// publication: title, authors, doi, state, annotation, qualifier.
package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/canonical"
)

// State is the curation state of one known publication.
type State string

const (
	StateNew       State = "new"        // not in library, not curated yet
	StateInLib     State = "inlib"      // in the library of papers
	StateIgnore    State = "ignore"     // looked at, not relevant or can't add
	StateWait      State = "wait"       // looked at, waiting on something
	StateExclude   State = "exclude"    // only ever reported by excluded alerts
	StateCantGuess State = "cant-guess" // legacy: automated triage gave up

	// StateUndetermined is the construction default. It exists only in
	// memory and must never be written to a store.
	StateUndetermined State = "dont-know-yet"
)

// columns is the fixed field order of the store file.
var columns = []string{"title", "authors", "doi", "state", "annotation", "qualifier"}

// Record is the durable curation memory for one publication.
type Record struct {
	title          string
	canonicalTitle string
	doi            string // canonical; "" means no DOI

	Authors    string
	State      State
	Annotation string
	Qualifier  string
}

// NewRecord returns an empty record in the undetermined state.
func NewRecord() *Record {
	return &Record{State: StateUndetermined}
}

// SetTitle sets the raw title and re-derives the canonical title.
func (r *Record) SetTitle(title string) {
	r.title = title
	r.canonicalTitle = canonical.Title(title)
}

// Title returns the raw, unmunged title.
func (r *Record) Title() string { return r.title }

// CanonicalTitle returns the canonical comparison key for the title.
func (r *Record) CanonicalTitle() string { return r.canonicalTitle }

// SetDOI canonicalizes raw and stores it. Malformed values are logged and
// stored as "".
func (r *Record) SetDOI(raw string, log zerolog.Logger) {
	r.doi = canonical.DOI(raw, log)
}

// DOI returns the canonical DOI, or "" when the publication has none.
func (r *Record) DOI() string { return r.doi }

// Store is an in-memory known-publication database, loadable from and
// writable to a TSV file.
type Store struct {
	byCanonicalTitle map[string]*Record
	byCanonicalDOI   map[string]*Record
	records          []*Record // load/add order
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byCanonicalTitle: make(map[string]*Record),
		byCanonicalDOI:   make(map[string]*Record),
	}
}

// Load reads a store file written by a previous run.
func Load(path string, log zerolog.Logger) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening known pubs file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading known pubs file: %w", err)
	}
	if len(rows) == 0 {
		return NewStore(), nil
	}

	// Map header names to positions so column reordering in a hand-edited
	// file doesn't corrupt the load.
	pos := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		pos[name] = i
	}
	for _, name := range columns {
		if _, ok := pos[name]; !ok && name != "qualifier" {
			return nil, fmt.Errorf("known pubs file missing %q column", name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := pos[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	s := NewStore()
	for _, row := range rows[1:] {
		rec := NewRecord()
		rec.SetTitle(field(row, "title"))
		rec.Authors = field(row, "authors")
		rec.SetDOI(field(row, "doi"), log)
		rec.State = State(field(row, "state"))
		rec.Annotation = field(row, "annotation")
		rec.Qualifier = field(row, "qualifier")
		s.Add(rec)
	}
	return s, nil
}

// Add puts a record into the store and its lookup maps. Everything has a
// title; not everything has a DOI. The store holds one record per canonical
// title: adding a second record for the same publication replaces the
// earlier one, last wins.
func (s *Store) Add(rec *Record) {
	if old, ok := s.byCanonicalTitle[rec.CanonicalTitle()]; ok {
		for i, r := range s.records {
			if r == old {
				s.records[i] = rec
				break
			}
		}
		if canonical.IsCanonicalDOI(old.DOI()) {
			delete(s.byCanonicalDOI, old.DOI())
		}
	} else {
		s.records = append(s.records, rec)
	}
	s.byCanonicalTitle[rec.CanonicalTitle()] = rec
	if canonical.IsCanonicalDOI(rec.DOI()) {
		s.byCanonicalDOI[rec.DOI()] = rec
	}
}

// Len returns the number of records in the store.
func (s *Store) Len() int { return len(s.records) }

// Records returns all records in load/add order.
func (s *Store) Records() []*Record { return s.records }

// ByCanonicalTitle returns the record for a canonical title, or nil.
func (s *Store) ByCanonicalTitle(canonicalTitle string) *Record {
	return s.byCanonicalTitle[canonicalTitle]
}

// ByCanonicalDOI returns the record for a canonical DOI, or nil.
func (s *Store) ByCanonicalDOI(doi string) *Record {
	return s.byCanonicalDOI[doi]
}

// Write writes the store to path. Output is deterministic so successive
// runs diff cleanly: entries still being curated (new, wait) come first,
// resolved entries (ignore, inlib, exclude) second, and entries in states
// nobody recognizes last, each group alphabetical by canonical title.
// Records in anomalous states are preserved for hand repair, never dropped;
// cant-guess is the one exception and is saved as wait.
func (s *Store) Write(path string, log zerolog.Logger) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating known pubs file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("writing known pubs header: %w", err)
	}

	var active, past, bizarre []*Record
	for _, rec := range s.records {
		switch rec.State {
		case StateNew, StateWait:
			active = append(active, rec)
		case StateIgnore, StateInLib, StateExclude:
			past = append(past, rec)
		case StateCantGuess:
			log.Warn().
				Str("title", rec.Title()).
				Msg("entry in cant-guess state, saving as wait")
			rec.State = StateWait
			active = append(active, rec)
		default:
			log.Warn().
				Str("title", rec.Title()).
				Str("state", string(rec.State)).
				Msg("entry with unknown state written to known pubs file")
			bizarre = append(bizarre, rec)
		}
	}

	for _, group := range [][]*Record{active, past, bizarre} {
		sort.Slice(group, func(i, j int) bool {
			return group[i].CanonicalTitle() < group[j].CanonicalTitle()
		})
		for _, rec := range group {
			row := []string{
				rec.Title(), rec.Authors, rec.DOI(),
				string(rec.State), rec.Annotation, rec.Qualifier,
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing known pub row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing known pubs file: %w", err)
	}
	return nil
}
