package library

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/canonical"
	"github.com/matsen/pubsieve/internal/pub"
)

// ZoteroServiceName is the display name used in reports.
const ZoteroServiceName = "Zotero"

// Zotero is a publication library loaded from a Zotero CSV export.
type Zotero struct {
	onlineURL string
	pubs      []*pub.Pub
	keys      map[*pub.Pub]string // Zotero item key per pub
}

// LoadZotero reads a Zotero library CSV export. onlineURL is the base URL
// of the library on zotero.org, e.g.
// https://www.zotero.org/groups/1732893/galaxy.
func LoadZotero(path, onlineURL string, log zerolog.Logger) (*Zotero, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening Zotero export: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading Zotero export: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("Zotero export %s is empty", path)
	}

	// Zotero writes a UTF-8 BOM in front of the first header cell.
	rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	pos := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		pos[name] = i
	}
	for _, name := range []string{"Key", "Title"} {
		if _, ok := pos[name]; !ok {
			return nil, fmt.Errorf("Zotero export missing %q column", name)
		}
	}
	field := func(row []string, name string) string {
		i, ok := pos[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	z := &Zotero{onlineURL: strings.TrimRight(onlineURL, "/"), keys: make(map[*pub.Pub]string)}
	for _, row := range rows[1:] {
		p := &pub.Pub{}
		p.SetTitle(field(row, "Title"))
		p.SetDOI(field(row, "DOI"), log)
		p.URL = field(row, "Url")

		// Zotero author lists look like:
		//   Gloaguen, Yoann; Morton, Fraser; Daly, Rónán
		if authors := field(row, "Author"); authors != "" {
			p.SetAuthors(authors, zoteroFirstAuthor(authors))
		} else {
			log.Warn().Str("title", p.Title).Msg("Zotero pub has no authors")
		}

		p.Year = field(row, "Publication Year")
		if p.Year == "" {
			p.Year = "unknown"
			log.Warn().Str("title", p.Title).Msg("Zotero pub has no publication year")
		}

		if tags := field(row, "Manual Tags"); tags != "" {
			p.Tags = strings.Split(tags, "; ")
		} else {
			log.Warn().Str("title", p.Title).Msg("Zotero pub has no tags")
		}

		if field(row, "Item Type") == "journalArticle" {
			p.Ref = field(row, "Publication Title")
		}

		p.EntryDate = zoteroEntryDate(field(row, "Date Added"))

		z.pubs = append(z.pubs, p)
		z.keys[p] = field(row, "Key")
	}
	return z, nil
}

func (z *Zotero) ServiceName() string { return ZoteroServiceName }

func (z *Zotero) Pubs() []*pub.Pub { return z.pubs }

// PubURL links to the pub's item page in the online library.
func (z *Zotero) PubURL(p *pub.Pub) string {
	key := z.keys[p]
	if key == "" || z.onlineURL == "" {
		return ""
	}
	return z.onlineURL + "/items/" + key
}

// zoteroFirstAuthor derives the canonical first-author surname. Zotero
// lists authors as "Last, First; Last, First", so the surname is whatever
// comes before the first comma.
func zoteroFirstAuthor(authors string) string {
	last, _, _ := strings.Cut(authors, ",")
	return canonical.Title(last)
}

// zoteroEntryDate normalizes Zotero's "2017-09-14 17:48:40" timestamps to a
// bare date. Exports have carried a few different timestamp shapes over the
// years, so parse leniently and fall back to the leading date characters.
func zoteroEntryDate(added string) string {
	if added == "" {
		return ""
	}
	if t, err := dateparse.ParseAny(added); err == nil {
		return t.Format("2006-01-02")
	}
	if len(added) >= 10 {
		return added[:10]
	}
	return added
}
