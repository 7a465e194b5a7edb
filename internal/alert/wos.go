package alert

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/matsen/pubsieve/internal/canonical"
	"github.com/matsen/pubsieve/internal/pub"
)

var wosSenders = []string{"noreply@clarivate.com", "alerts@isiknowledge.com"}

var (
	wosRecordStartRe = regexp.MustCompile(`^Record \d+ of \d+`)
	wosSearchLabelRe = regexp.MustCompile(`(Cited Article|Alert Query):\s*(.*)$`)
	wosExpirationRe  = regexp.MustCompile(`Citation Alert Expiration Notice`)
)

// wosFieldLabels introduce the labeled fields of one record. Any label ends
// whatever multi-node field came before it.
var wosFieldLabels = map[string]bool{
	"Title:":       true,
	"Authors:":     true,
	"Source:":      true,
	"DOI:":         true,
	"Times Cited:": true,
	"Abstract:":    true,
	"Language:":    true,
}

// WoSParser parses Web of Science alert emails. Each record is a run of
// labeled fields ("Title:", "Authors:", "Source:", "DOI:") introduced by a
// "Record m of n" line. WoS sends alert mail even when a search matched
// nothing, so an empty parse is routine rather than a warning.
type WoSParser struct{}

// NewWoSParser returns a parser for Web of Science alert emails.
func NewWoSParser() *WoSParser { return &WoSParser{} }

func (p *WoSParser) Name() string { return "webofscience-email" }

func (p *WoSParser) EmptyOK() bool { return true }

func (p *WoSParser) Sniff(msg Message) bool {
	for _, s := range wosSenders {
		if strings.Contains(msg.Sender, s) {
			return true
		}
	}
	return false
}

// Parse walks the message's text nodes in document order, starting a new
// publication at each "Record m of n" line and filling fields as their
// labels appear. The search criterion comes from the "Alert Query:" or
// "Cited Article:" preamble.
func (p *WoSParser) Parse(msg Message, log zerolog.Logger) ([]*PubAlert, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.Body))
	if err != nil {
		return nil, err
	}

	a := &Alert{Source: p.Name()}

	if wosExpirationRe.MatchString(msg.Subject) || wosExpirationRe.MatchString(msg.Body) {
		log.Warn().
			Str("subject", msg.Subject).
			Msg("Web of Science alert is expiring")
		a.Search = strings.TrimSpace(msg.Subject)
		return nil, nil
	}

	var texts []string
	for _, n := range doc.Selection.Nodes {
		collectText(n, &texts)
	}

	var (
		pas     []*PubAlert
		current *pub.Pub
		field   string // label of the field being accumulated
	)
	for _, data := range texts {
		switch {
		case wosRecordStartRe.MatchString(data):
			current = &pub.Pub{}
			pas = append(pas, &PubAlert{Pub: current, Alert: a})
			field = ""

		case wosSearchLabelRe.MatchString(data):
			if rest := wosSearchLabelRe.FindStringSubmatch(data)[2]; rest != "" {
				a.Search += rest
			} else {
				field = "search"
			}

		case wosFieldLabels[data]:
			field = data

		case field == "search":
			// WoS corrupts queries containing punctuation with a stray
			// CDATA terminator.
			a.Search += strings.ReplaceAll(data, "]]>", "")
			field = ""

		case current == nil:
			// preamble noise before the first record

		case field == "Title:":
			if current.Title == "" {
				current.SetTitle(data)
			} else {
				current.SetTitle(current.Title + " " + data)
			}

		case field == "Authors:":
			// WoS author lists look like:
			//   Galia, W; Leriche, F; Cruveiller, S
			first, _, _ := strings.Cut(data, ",")
			current.SetAuthors(data, canonical.Title(first))
			field = ""

		case field == "Source:":
			if current.Ref != "" {
				current.Ref += " "
			}
			current.Ref += data
			if y := yearRe.FindString(data); y != "" && current.Year == "" {
				current.Year = y
			}

		case field == "DOI:":
			current.SetDOI(data, log)
			field = ""
		}
	}

	if a.Search == "" {
		a.Search = strings.TrimSpace(msg.Subject)
	}
	return pas, nil
}

// collectText gathers non-empty text nodes in document order.
func collectText(n *html.Node, out *[]string) {
	if n.Type == html.TextNode {
		if t := collapseSpace(n.Data); t != "" {
			*out = append(*out, t)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, out)
	}
}
