package alert

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/canonical"
	"github.com/matsen/pubsieve/internal/pub"
)

// MinTruncatedTitleLen is the shortest truncated title Scholar has been
// observed to produce. Full titles at least this long may be the
// un-truncated form of a title seen earlier in the same run; shorter ones
// cannot safely be assumed to be.
const MinTruncatedTitleLen = 135

// scholarSenders are the addresses Scholar alerts arrive from.
var scholarSenders = []string{"scholaralerts-noreply@google.com"}

// newResultsSuffix decorates Scholar subject lines, e.g.
// `"galaxy genome analysis" - new results`.
var newResultsSuffix = regexp.MustCompile(`\s*-\s*new (results|citations|articles)\s*$`)

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ScholarParser parses Google Scholar alert emails. Scholar truncates long
// titles at display width with a non-breaking space and an ellipsis; those
// titles are kept marked so the match index can reconcile them against full
// titles seen elsewhere.
type ScholarParser struct{}

// NewScholarParser returns a parser for Google Scholar alert emails.
func NewScholarParser() *ScholarParser { return &ScholarParser{} }

func (p *ScholarParser) Name() string { return "googlescholar-email" }

func (p *ScholarParser) EmptyOK() bool { return false }

func (p *ScholarParser) Sniff(msg Message) bool {
	for _, s := range scholarSenders {
		if strings.Contains(msg.Sender, s) {
			return true
		}
	}
	return false
}

// Parse extracts one pub alert per result block. Scholar emails carry the
// search criterion in the subject line; each result is a title anchor
// (class gse_alrt_title) followed by an author/venue line and, usually, a
// snippet of the matched text (class gse_alrt_sni).
func (p *ScholarParser) Parse(msg Message, log zerolog.Logger) ([]*PubAlert, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.Body))
	if err != nil {
		return nil, err
	}

	a := &Alert{
		Search: newResultsSuffix.ReplaceAllString(strings.TrimSpace(msg.Subject), ""),
		Source: p.Name(),
	}

	var pas []*PubAlert
	doc.Find("a.gse_alrt_title").Each(func(_ int, link *goquery.Selection) {
		pb := &pub.Pub{}
		pb.SetTitle(collapseSpace(link.Text()))
		pb.URL = scholarTarget(link.AttrOr("href", ""))

		block := link.Closest("h3")
		if block.Length() == 0 {
			block = link
		}

		// The line after the title is "Authors - Venue, Year".
		byline := collapseSpace(block.NextFiltered("div").First().Text())
		if byline != "" {
			authors, venue, _ := strings.Cut(byline, " - ")
			authors = strings.TrimSpace(authors)
			if authors != "" {
				pb.SetAuthors(authors, scholarFirstAuthor(authors))
			}
			if venue = strings.TrimSpace(venue); venue != "" {
				pb.Ref = venue
				pb.Year = yearRe.FindString(venue)
			}
		}
		if pb.Authors == "" {
			log.Warn().
				Str("title", pb.Title).
				Msg("Scholar alert entry has no authors")
		}

		pa := &PubAlert{Pub: pb, Alert: a}
		if sni := block.NextAllFiltered("div.gse_alrt_sni").First(); sni.Length() > 0 {
			pa.TextFromPub = collapseSpace(sni.Text())
		}
		pas = append(pas, pa)
	})

	return pas, nil
}

// scholarTarget unwraps Scholar's redirect links; the real publication URL
// rides in the url query parameter.
func scholarTarget(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("url"); target != "" {
		return target
	}
	return href
}

// scholarFirstAuthor derives the canonical first-author surname from a
// Scholar author list like "Y Gloaguen, F Morton, R Daly". Scholar prints
// initials first, so the surname is the last word of the first name.
func scholarFirstAuthor(authors string) string {
	first, _, _ := strings.Cut(authors, ",")
	words := strings.Fields(strings.TrimSuffix(strings.TrimSpace(first), "…"))
	if len(words) == 0 {
		return ""
	}
	return canonical.Title(words[len(words)-1])
}

// collapseSpace trims a string and squeezes runs of ASCII whitespace to
// single spaces, undoing HTML reflow. Non-breaking spaces are left alone:
// they are part of the Scholar truncation marker.
func collapseSpace(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	return strings.Join(fields, " ")
}
