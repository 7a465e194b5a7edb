// Package config loads the run configuration for a matching run.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config describes one matching run: where the library, alerts, and
// curation history live, and how report links are generated. Values come
// from a YAML file, with PUBSIEVE_* environment variables taking
// precedence.
type Config struct {
	// Library of already-accepted publications.
	LibType      string `yaml:"lib_type" env:"PUBSIEVE_LIB_TYPE"`
	LibPath      string `yaml:"lib_path" env:"PUBSIEVE_LIB_PATH"`
	OnlineLibURL string `yaml:"online_lib_url" env:"PUBSIEVE_ONLINE_LIB_URL"`

	// Directory of retrieved alert messages (*.eml) and the sources to
	// process. An empty source list means every known source.
	AlertDir string   `yaml:"alert_dir" env:"PUBSIEVE_ALERT_DIR"`
	Sources  []string `yaml:"sources" env:"PUBSIEVE_SOURCES" envSeparator:","`

	// Curation history from the previous run, and where to write this
	// run's update.
	KnownPubsIn  string `yaml:"known_pubs_in" env:"PUBSIEVE_KNOWN_PUBS_IN"`
	KnownPubsOut string `yaml:"known_pubs_out" env:"PUBSIEVE_KNOWN_PUBS_OUT"`

	// Curation report output.
	CurationPage string `yaml:"curation_page" env:"PUBSIEVE_CURATION_PAGE"`

	// Reviewed duplicate titles and alert searches whose hits get flagged.
	OkDupTitles   string `yaml:"ok_duplicate_titles" env:"PUBSIEVE_OK_DUPLICATE_TITLES"`
	ExcludeAlerts string `yaml:"exclude_alerts" env:"PUBSIEVE_EXCLUDE_ALERTS"`

	// Report link generation.
	Proxy           string `yaml:"proxy" env:"PUBSIEVE_PROXY"`
	ProxySeparator  string `yaml:"proxy_separator" env:"PUBSIEVE_PROXY_SEPARATOR"`
	CustomSearchURL string `yaml:"custom_search_url" env:"PUBSIEVE_CUSTOM_SEARCH_URL"`

	// RedirectCache is the sqlite file persisting URL redirect lookups
	// across runs. Empty means an in-memory cache for this run only.
	RedirectCache string `yaml:"redirect_cache" env:"PUBSIEVE_REDIRECT_CACHE"`
}

// proxySeparators maps the configured separator option to the character
// inserted into proxied host names.
var proxySeparators = map[string]string{
	"":     ".",
	"dot":  ".",
	"dash": "-",
}

// Load reads the YAML config at path (optional) and applies environment
// overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.LibType == "":
		return fmt.Errorf("lib_type is required")
	case c.LibPath == "":
		return fmt.Errorf("lib_path is required")
	case c.AlertDir == "":
		return fmt.Errorf("alert_dir is required")
	case c.CurationPage == "":
		return fmt.Errorf("curation_page is required")
	}
	if _, ok := proxySeparators[c.ProxySeparator]; !ok {
		return fmt.Errorf("proxy_separator must be dot or dash, got %q", c.ProxySeparator)
	}
	return nil
}

// ProxySeparatorChar returns the separator character for the configured
// option.
func (c *Config) ProxySeparatorChar() string {
	return proxySeparators[c.ProxySeparator]
}
