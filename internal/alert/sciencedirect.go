package alert

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/canonical"
	"github.com/matsen/pubsieve/internal/pub"
)

var sdSenders = []string{"salert@prod.sciencedirect.com"}

// sdArticleBaseURL is where a pii key from an alert link resolves to.
const sdArticleBaseURL = "http://www.sciencedirect.com/science/article/pii/"

// sdSearchStartRe introduces the search criterion line in the email body.
var sdSearchStartRe = regexp.MustCompile(`(More\.\.\.\s+)*Access (the|all \d+) new result[s]?`)

// sdPiiKeyRe pulls the article's pii key out of an alert link, which is
// otherwise a long tracking URL.
var sdPiiKeyRe = regexp.MustCompile(`_piikey=([^&]+)`)

// SDParser parses ScienceDirect alert emails. Alert links carry a tracking
// URL rather than the article URL; the article's pii key is extracted and
// rebuilt into a direct link. Alerts carry no DOI, so these pubs match by
// title only.
type SDParser struct{}

// NewSDParser returns a parser for ScienceDirect alert emails.
func NewSDParser() *SDParser { return &SDParser{} }

func (p *SDParser) Name() string { return "sciencedirect-email" }

func (p *SDParser) EmptyOK() bool { return false }

func (p *SDParser) Sniff(msg Message) bool {
	for _, s := range sdSenders {
		if strings.Contains(msg.Sender, s) {
			return true
		}
	}
	return false
}

// Parse extracts one pub alert per result cell (class txtcontent): the title
// span (artTitle), the journal reference in the following italic, and the
// author span (authorTxt).
func (p *SDParser) Parse(msg Message, log zerolog.Logger) ([]*PubAlert, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.Body))
	if err != nil {
		return nil, err
	}

	a := &Alert{Search: sdSearch(doc), Source: p.Name()}

	var pas []*PubAlert
	doc.Find("td.txtcontent").Each(func(_ int, cell *goquery.Selection) {
		pb := &pub.Pub{}
		pb.SetTitle(collapseSpace(cell.Find("span.artTitle").First().Text()))
		if pb.Title == "" {
			return
		}
		pb.URL = sdArticleURL(cell.Find("a").First().AttrOr("href", ""))
		pb.Ref = collapseSpace(cell.Find("i").First().Text())
		if y := yearRe.FindString(pb.Ref); y != "" {
			pb.Year = y
		}

		if authors := collapseSpace(cell.Find("span.authorTxt").First().Text()); authors != "" {
			pb.SetAuthors(authors, sdFirstAuthor(authors))
		} else {
			log.Warn().
				Str("title", pb.Title).
				Msg("ScienceDirect alert entry has no authors")
		}
		pas = append(pas, &PubAlert{Pub: pb, Alert: a})
	})

	return pas, nil
}

// sdSearch finds the search criterion: the text following the
// "Access the new results" line.
func sdSearch(doc *goquery.Document) string {
	var texts []string
	for _, n := range doc.Selection.Nodes {
		collectText(n, &texts)
	}
	for i, t := range texts {
		if sdSearchStartRe.MatchString(t) && i+1 < len(texts) {
			return strings.ReplaceAll(texts[i+1], "quot;", `"`)
		}
	}
	return ""
}

// sdArticleURL rebuilds the direct article URL from an alert tracking link.
func sdArticleURL(href string) string {
	m := sdPiiKeyRe.FindStringSubmatch(href)
	if m == nil {
		return href
	}
	return sdArticleBaseURL + m[1]
}

// sdFirstAuthor derives the canonical first-author surname. ScienceDirect
// author lists look like "Eugene Matthew P. Almazan, Sydney L. Lesko": the
// surname follows the last period of the first name, or its last space when
// there is no period.
func sdFirstAuthor(authors string) string {
	first, _, _ := strings.Cut(authors, ",")
	if i := strings.LastIndex(first, "."); i >= 0 {
		return canonical.Title(first[i+1:])
	}
	words := strings.Fields(first)
	if len(words) == 0 {
		return ""
	}
	return canonical.Title(words[len(words)-1])
}
