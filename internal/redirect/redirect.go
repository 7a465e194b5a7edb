// Package redirect resolves publication URLs that redirect elsewhere, the
// way DOI resolver links do. Checking for a redirect costs a network round
// trip, so results are cached; the cache backend is injected so runs can
// persist it and tests can fake it.
package redirect

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// userAgent is sent on every probe. Some publishers refuse requests that
// identify themselves as a script.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0"

// probeRateLimit caps redirect probes per second; publishers throttle
// aggressive clients.
const probeRateLimit = 5.0

// Backend stores resolved URLs between lookups, and possibly between runs.
type Backend interface {
	// Get returns the cached target for url and whether one is cached.
	Get(url string) (string, bool, error)
	// Put records that url resolves to target at time checkedAt.
	Put(url, target string, checkedAt time.Time) error
	Close() error
}

// Resolver follows publication URLs through their redirects.
type Resolver struct {
	backend Backend
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Resolver) { r.client = hc }
}

// WithClock sets the clock used to timestamp cache entries (for testing).
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a resolver over the given cache backend.
func NewResolver(backend Backend, log zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		backend: backend,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(probeRateLimit), 1),
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the URL pubURL ultimately redirects to, or pubURL itself
// when it does not redirect. Resolution failures are logged and fall back
// to the original URL; a dead link is a nuisance in the report, not a
// reason to abort the run.
func (r *Resolver) Resolve(ctx context.Context, pubURL string) string {
	if pubURL == "" {
		return ""
	}
	if target, ok, err := r.backend.Get(pubURL); err != nil {
		r.log.Warn().Err(err).Str("url", pubURL).Msg("redirect cache read failed")
	} else if ok {
		return target
	}

	target := r.probe(ctx, pubURL)
	if err := r.backend.Put(pubURL, target, r.now()); err != nil {
		r.log.Warn().Err(err).Str("url", pubURL).Msg("redirect cache write failed")
	}
	return target
}

func (r *Resolver) probe(ctx context.Context, pubURL string) string {
	if err := r.limiter.Wait(ctx); err != nil {
		return pubURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubURL, nil)
	if err != nil {
		r.log.Warn().Err(err).Str("url", pubURL).Msg("bad publication URL")
		return pubURL
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn().Err(err).Str("url", pubURL).Msg("checking URL for redirects failed")
		return pubURL
	}
	defer resp.Body.Close()

	// The client follows redirects; the final request URL is where the
	// chain ended up.
	return resp.Request.URL.String()
}

// MemoryBackend is a process-lifetime cache, used in tests and when no
// cache path is configured.
type MemoryBackend struct {
	targets map[string]string
}

// NewMemoryBackend returns an empty in-memory cache.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{targets: make(map[string]string)}
}

func (m *MemoryBackend) Get(url string) (string, bool, error) {
	target, ok := m.targets[url]
	return target, ok, nil
}

func (m *MemoryBackend) Put(url, target string, _ time.Time) error {
	m.targets[url] = target
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
