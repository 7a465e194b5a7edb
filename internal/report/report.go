// Package report renders the curation report: every matched publication
// that an alert reported this run, with enough context and links for a
// human to decide what to do with it.
package report

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/alert"
	"github.com/matsen/pubsieve/internal/history"
	"github.com/matsen/pubsieve/internal/library"
	"github.com/matsen/pubsieve/internal/match"
	"github.com/matsen/pubsieve/internal/redirect"
)

// Options control the link list generated for each publication.
type Options struct {
	// Proxy is inserted into pub URLs to reach paywalled pubs, e.g.
	// ".proxy1.library.jhu.edu".
	Proxy string
	// ProxySeparator replaces the dots of the original host name; some
	// proxies want "-" instead of ".".
	ProxySeparator string
	// CustomSearchURL, when set, gets the URL-encoded title appended to
	// form an extra title-search link.
	CustomSearchURL string
}

// Renderer writes curation reports.
type Renderer struct {
	lib      library.Reader
	excludes *alert.ExcludeSet
	resolver *redirect.Resolver
	opts     Options
	log      zerolog.Logger
}

// NewRenderer creates a renderer over the run's library, exclude list, and
// redirect resolver.
func NewRenderer(lib library.Reader, excludes *alert.ExcludeSet, resolver *redirect.Resolver, opts Options, log zerolog.Logger) *Renderer {
	if opts.ProxySeparator == "" {
		opts.ProxySeparator = "."
	}
	return &Renderer{lib: lib, excludes: excludes, resolver: resolver, opts: opts, log: log}
}

type pairingView struct {
	Search   string
	Ref      string
	Excerpt  string
	Excluded bool
}

type linkView struct {
	Href   string
	Target string
	Text   string
}

type clusterView struct {
	Counter   int
	StateText string
	Known     bool
	Dim       bool
	Title     string
	Authors   string
	Pairings  []pairingView
	Links     []linkView
}

// WriteCuration renders the clusters (already filtered to those with
// alerts, in title order) as an HTML page.
func (r *Renderer) WriteCuration(ctx context.Context, w io.Writer, clusters []*match.Cluster) error {
	var views []clusterView
	knownCount, newCount := 0, 0
	for _, c := range clusters {
		v := r.clusterView(ctx, c)
		if v.Known {
			knownCount++
			v.Counter = knownCount
		} else {
			newCount++
			v.Counter = newCount
		}
		views = append(views, v)
	}
	return curationTmpl.Execute(w, views)
}

func (r *Renderer) clusterView(ctx context.Context, c *match.Cluster) clusterView {
	v := clusterView{
		Title:   c.Title(),
		Authors: c.Authors(),
		Known:   c.IsKnown(),
	}
	if v.Known {
		v.StateText = "Known"
		if rec := c.Historical(); rec != nil {
			v.StateText += fmt.Sprintf(" (%s: %s | %s)", rec.State, rec.Annotation, rec.Qualifier)
			switch rec.State {
			case history.StateExclude, history.StateInLib, history.StateIgnore:
				v.Dim = true // resolved; deemphasize
			}
		}
		if lp := c.LibPub(); lp != nil {
			v.StateText += " (" + strings.Join(lp.Tags, ", ") + ")"
		}
	} else {
		v.StateText = "New"
	}

	// Pairings always come out in the same order; helps with diff'ing.
	pairings := append([]*alert.PubAlert(nil), c.Pairings()...)
	sort.SliceStable(pairings, func(i, j int) bool {
		return pairings[i].Alert.Search < pairings[j].Alert.Search
	})
	for _, pa := range pairings {
		v.Pairings = append(v.Pairings, pairingView{
			Search:   pa.Alert.SearchWithSource(),
			Ref:      pa.Pub.Ref,
			Excerpt:  pa.TextFromPub,
			Excluded: r.excludes.Contains(pa.Alert),
		})
	}

	v.Links = r.linkList(ctx, c)
	return v
}

// linkList builds the curation helper links for one publication.
func (r *Renderer) linkList(ctx context.Context, c *match.Cluster) []linkView {
	var links []linkView

	pubURL := r.resolver.Resolve(ctx, c.URL())
	if !c.IsNew() && c.LibPub() != nil {
		if u := r.lib.PubURL(c.LibPub()); u != "" {
			links = append(links, linkView{u, "lib", "See pub at " + r.lib.ServiceName()})
		}
	}
	if pubURL != "" {
		links = append(links, linkView{pubURL, "nativepub", "See pub"})
		if r.opts.Proxy != "" {
			links = append(links, linkView{
				ProxyURL(pubURL, r.opts.Proxy, r.opts.ProxySeparator),
				"proxypub", "See pub via proxy"})
		}
	}

	title := c.Title()
	q := url.QueryEscape(title)
	if r.opts.CustomSearchURL != "" {
		site := baseSite(r.opts.CustomSearchURL)
		links = append(links, linkView{
			r.opts.CustomSearchURL + "q=" + q,
			"custom-search", "Search for pub at " + site})
	}
	links = append(links,
		linkView{"https://www.google.com/search?q=" + q, "googletitlesearch", "Search Google"},
		linkView{"https://scholar.google.com/scholar?q=" + q, "googlescholarsearch", "Search Google Scholar"},
		linkView{"https://www.ncbi.nlm.nih.gov/pubmed/?term=" + q, "pubmedtitlesearch", "Search Pubmed"},
	)
	return links
}

// ProxyURL rewrites a pub URL so it goes through a library paywall proxy:
// the proxy host is appended to the original host, whose dots some proxies
// replace with dashes.
func ProxyURL(pubURL, proxy, separator string) string {
	parts := strings.Split(pubURL, "/")
	if len(parts) < 3 {
		return pubURL
	}
	parts[2] = strings.ReplaceAll(parts[2], ".", separator)
	return strings.Join(parts[:3], "/") + proxy + "/" + strings.Join(parts[3:], "/")
}

// baseSite cuts a URL down to scheme and host for display.
func baseSite(u string) string {
	parts := strings.Split(u, "/")
	if len(parts) < 3 {
		return u
	}
	return strings.Join(parts[:3], "/")
}

var curationTmpl = template.Must(template.New("curation").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"/><title>Publication alerts</title></head>
<body>
{{range .}}
<div style="{{if .Known}}{{if .Dim}}background-color: #cccccc; color: #999999;{{else}}background-color: #dddddd;{{end}}{{else}}background-color: #eeeeff;{{end}} border: 1px solid #bbbbbb; margin: 1em 0.5em; padding: 0 1em;">
<p style="font-size: 160%;">{{.Counter}}. {{.StateText}}</p>
<p style="font-size: 140%;"><strong>{{.Title}}</strong></p>
<p>{{.Authors}}</p>
{{if .Pairings}}
<p>Alerts for this pub:</p>
<ol>
{{range .Pairings}}
<li{{if .Excluded}} style="background-color: yellow;"{{end}}><strong>{{.Search}}</strong>
<ul>
{{if .Ref}}<li>{{.Ref}}</li>{{end}}
{{if .Excerpt}}<li>{{.Excerpt}}</li>{{end}}
</ul>
</li>
{{end}}
</ol>
{{end}}
<p>Links</p>
<ul>
{{range .Links}}<li><a href="{{.Href}}" target="{{.Target}}">{{.Text}}</a></li>
{{end}}</ul>
</div>
{{end}}
</body>
</html>
`))
