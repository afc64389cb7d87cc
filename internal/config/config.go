// Package config resolves apiweaver settings from flags, APIWEAVER_*
// environment variables, an optional config file and defaults, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"apiweaver/internal/apierr"
	"apiweaver/internal/fetch"
	"apiweaver/internal/openapi"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: APIWEAVER_OUTPUT, APIWEAVER_TIMEOUT, ...
const EnvPrefix = "APIWEAVER"

// Keys double as flag names and config file keys.
const (
	KeyURL            = "url"
	KeyOutput         = "output"
	KeyExisting       = "existing"
	KeyVerbose        = "verbose"
	KeyTimeout        = "timeout"
	KeyUserAgent      = "user-agent"
	KeyHeadingSuffix  = "heading-suffix"
	KeySchemaName     = "schema-name"
	KeyTitle          = "title"
	KeyAPIVersion     = "api-version"
	KeyFormat         = "format"
	KeyExamples       = "examples"
	KeySeed           = "seed"
	KeySelector       = "selector"
	KeyTextOnly       = "text"
	KeyCatalogKind    = "catalog-kind"
	KeyCatalogDSN     = "catalog-dsn"
	KeyMetricsBackend = "metrics-backend"
	KeyMetricsTags    = "metrics-tags"
)

// Defaults.
const (
	DefaultOutput        = "generated-api.yaml"
	DefaultTimeoutMS     = 30000
	DefaultHeadingSuffix = "ObjectValues"
	DefaultTitle         = openapi.DefaultTitle
	DefaultAPIVersion    = openapi.DefaultVersion
)

// Config is the resolved configuration of one run.
type Config struct {
	URL      string `mapstructure:"url"`
	Output   string `mapstructure:"output"`
	Existing string `mapstructure:"existing"`
	Verbose  bool   `mapstructure:"verbose"`
	// TimeoutMS bounds the HTTP fetch, in milliseconds.
	TimeoutMS     int    `mapstructure:"timeout"`
	UserAgent     string `mapstructure:"user-agent"`
	HeadingSuffix string `mapstructure:"heading-suffix"`
	// SchemaName overrides the name derived from the heading id.
	SchemaName string `mapstructure:"schema-name"`
	Title      string `mapstructure:"title"`
	APIVersion string `mapstructure:"api-version"`
	// Format is "yaml" or "json"; empty infers it from Output.
	Format   string `mapstructure:"format"`
	Examples bool   `mapstructure:"examples"`
	Seed     int64  `mapstructure:"seed"`

	// Selector switches to debug mode: print matches instead of generating.
	Selector string `mapstructure:"selector"`
	TextOnly bool   `mapstructure:"text"`

	CatalogKind    string `mapstructure:"catalog-kind"`
	CatalogDSN     string `mapstructure:"catalog-dsn"`
	MetricsBackend string `mapstructure:"metrics-backend"`
	MetricsTags    string `mapstructure:"metrics-tags"`
}

// SetDefaults registers every key's default on v. Keys must be known to v
// for environment overrides to apply on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyURL, "")
	v.SetDefault(KeyOutput, DefaultOutput)
	v.SetDefault(KeyExisting, "")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyTimeout, DefaultTimeoutMS)
	v.SetDefault(KeyUserAgent, fetch.DefaultUserAgent)
	v.SetDefault(KeyHeadingSuffix, DefaultHeadingSuffix)
	v.SetDefault(KeySchemaName, "")
	v.SetDefault(KeyTitle, DefaultTitle)
	v.SetDefault(KeyAPIVersion, DefaultAPIVersion)
	v.SetDefault(KeyFormat, "")
	v.SetDefault(KeyExamples, false)
	v.SetDefault(KeySeed, 0)
	v.SetDefault(KeySelector, "")
	v.SetDefault(KeyTextOnly, false)
	v.SetDefault(KeyCatalogKind, "")
	v.SetDefault(KeyCatalogDSN, "")
	v.SetDefault(KeyMetricsBackend, "")
	v.SetDefault(KeyMetricsTags, "")
}

// Load resolves a Config from v. Flags must already be bound to v. When
// file is non-empty it is read as the config file and must exist.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, apierr.Wrapf(apierr.KindConfiguration, "config", file, err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, apierr.Wrapf(apierr.KindConfiguration, "config", file, err, "decode config")
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Output = strings.TrimSpace(c.Output)
	c.Existing = strings.TrimSpace(c.Existing)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.CatalogKind = strings.ToLower(strings.TrimSpace(c.CatalogKind))
	c.MetricsBackend = strings.ToLower(strings.TrimSpace(c.MetricsBackend))
}

// Timeout returns TimeoutMS as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// FromStdin reports whether the page is read from stdin.
func (c Config) FromStdin() bool { return c.URL == fetch.StdinURL }

// DebugMode reports whether the run only prints selector matches.
func (c Config) DebugMode() bool { return strings.TrimSpace(c.Selector) != "" }

// Validate reports every invalid setting as one configuration error.
func (c Config) Validate() error {
	var errs []error

	switch {
	case c.URL == "":
		errs = append(errs, errors.New("url is required (positional argument, or - for stdin)"))
	case c.URL == fetch.StdinURL:
	default:
		if err := fetch.ValidateURL(c.URL); err != nil {
			errs = append(errs, err)
		}
	}

	if !c.DebugMode() {
		if c.Output == "" {
			errs = append(errs, errors.New("output path is empty"))
		}
		if _, err := openapi.WriterFor(c.Output, c.Format); err != nil {
			errs = append(errs, err)
		}
		if strings.TrimSpace(c.HeadingSuffix) == "" {
			errs = append(errs, errors.New("heading suffix is empty"))
		}
	}
	if c.TimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %dms", c.TimeoutMS))
	}

	switch c.MetricsBackend {
	case "", "none", "datadog":
	default:
		errs = append(errs, fmt.Errorf("unknown metrics backend %q (want none or datadog)", c.MetricsBackend))
	}
	if c.CatalogKind == "" && c.CatalogDSN != "" {
		errs = append(errs, errors.New("catalog dsn given without catalog kind"))
	}

	if len(errs) == 0 {
		return nil
	}
	return apierr.Wrap(apierr.KindConfiguration, "config", "", errors.Join(errs...))
}
