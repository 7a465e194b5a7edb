// Package alert defines alerts, the pairing of a publication with the alert
// that reported it, and the parsers that turn raw alert messages into those
// pairings.
//
// Alerts report that some search criterion matched one or more publications.
// Retrieval of the raw messages from a mail transport happens elsewhere;
// this package starts from an already-decoded Message.
package alert

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matsen/pubsieve/internal/pub"
)

// Alert describes one notification from an external service.
type Alert struct {
	// Search is the text describing the search criterion that fired.
	// Usually comes from the alert itself.
	Search string
	// Source names the provider, e.g. "googlescholar-email".
	Source string
}

// SearchWithSource returns the search text annotated with the provider
// name, for report output.
func (a *Alert) SearchWithSource() string {
	return fmt.Sprintf("%s (%s)", a.Search, a.Source)
}

// PubAlert pairs one publication with the alert that reported it.
type PubAlert struct {
	Pub   *pub.Pub
	Alert *Alert
	// TextFromPub is the excerpt that matched, when the source supplies
	// one. Not all sources do.
	TextFromPub string
}

// Message is one raw alert message, already retrieved from the transport
// and transfer-decoded.
type Message struct {
	Sender  string
	Subject string
	Body    string // decoded body, HTML for every current provider
}

// Parser turns raw alert messages from one provider into pub alerts.
// Implementations are stateless; all per-message state lives in Parse.
type Parser interface {
	// Name is the provider name used in configuration and reports.
	Name() string
	// Sniff reports whether this parser handles msg. Pure: it inspects
	// the sender address and, where senders overlap, the subject line.
	Sniff(msg Message) bool
	// EmptyOK reports whether an alert with zero matched publications is
	// routine for this provider. Most providers only send mail when a
	// search fired, so an empty parse is worth a warning; Web of Science
	// sends alerts even when there is nothing to report.
	EmptyOK() bool
	// Parse extracts the pub alerts described by msg.
	Parse(msg Message, log zerolog.Logger) ([]*PubAlert, error)
}

// Registry holds the known parsers and dispatches messages to them.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns a registry of all supported providers.
func NewRegistry() *Registry {
	return &Registry{parsers: []Parser{
		NewScholarParser(),
		NewSDParser(),
		NewWoSParser(),
	}}
}

// Names returns the provider names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Name()
	}
	return names
}

// ForSource returns the parser registered under name.
func (r *Registry) ForSource(name string) (Parser, error) {
	for _, p := range r.parsers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown alert source %q", name)
}

// Restrict returns a registry containing only the named providers, in the
// order given. It is how a run limits itself to a subset of sources.
func (r *Registry) Restrict(names []string) (*Registry, error) {
	sub := &Registry{}
	for _, name := range names {
		p, err := r.ForSource(name)
		if err != nil {
			return nil, err
		}
		sub.parsers = append(sub.parsers, p)
	}
	return sub, nil
}

// Sniff returns the parser that claims msg, or an error when no provider
// recognizes it.
func (r *Registry) Sniff(msg Message) (Parser, error) {
	for _, p := range r.parsers {
		if p.Sniff(msg) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no alert source recognizes sender %q", msg.Sender)
}

// Parse runs every message through the parser that claims it and returns
// the pub alerts in message order. Messages from senders outside this
// registry are skipped with a warning; a parse failure is fatal, since a
// partial alert sweep must not look complete.
func (r *Registry) Parse(msgs []Message, log zerolog.Logger) ([]*PubAlert, error) {
	var all []*PubAlert
	for _, msg := range msgs {
		p, err := r.Sniff(msg)
		if err != nil {
			log.Warn().
				Str("sender", msg.Sender).
				Str("subject", msg.Subject).
				Msg("skipping message from unconfigured sender")
			continue
		}
		pas, err := p.Parse(msg, log)
		if err != nil {
			return nil, fmt.Errorf("parsing %s alert %q: %w", p.Name(), msg.Subject, err)
		}
		if len(pas) == 0 && !p.EmptyOK() {
			log.Warn().
				Str("source", p.Name()).
				Str("subject", msg.Subject).
				Msg("alert reported no publications")
		}
		all = append(all, pas...)
	}
	return all, nil
}
