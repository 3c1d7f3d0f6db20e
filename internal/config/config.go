// Package config loads settings from defaults, an optional YAML file, a .env
// file, CVURL_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cvurl/internal/domain"
	"cvurl/internal/fetcher"
)

// EnvPrefix prefixes every environment override, e.g. CVURL_SERVER_PORT.
const EnvPrefix = "CVURL"

// Config is the complete configuration.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Extract ExtractConfig
	Domains DomainsConfig
	Fetch   FetchConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

type LogConfig struct {
	Level       string
	Development bool
}

// ExtractConfig holds the content thresholds, in runes.
type ExtractConfig struct {
	MaxChars            int
	MinCharsRendered    int
	MinCharsPlain       int
	ReportFallbackChars int
}

type DomainsConfig struct {
	Stealth []string
	Profile []string
}

type FetchConfig struct {
	// RawFallback allows one raw socket retry after a light tier failure on
	// a non-profile site.
	RawFallback bool
	Light       LightConfig
	Stealth     StealthConfig
	Reader      ReaderConfig
	Raw         RawConfig
}

type LightConfig struct {
	Enabled   bool
	Timeout   time.Duration
	UserAgent string
}

type StealthConfig struct {
	Enabled      bool
	Timeout      time.Duration
	BrowserBin   string
	ControlURL   string
	Headless     bool
	NoSandbox    bool
	Proxy        string
	Settle       time.Duration
	WaitSelector string
	UserAgent    string
}

type ReaderConfig struct {
	Endpoint     string
	Token        string
	Timeout      time.Duration
	WaitSelector string
}

type RawConfig struct {
	Enabled   bool
	Timeout   time.Duration
	UserAgent string
}

// profileSelector marks rendered profile content on the professional
// network.
const profileSelector = "main .pv-top-card, .top-card-layout, main section"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("extract.max_chars", 12000)
	v.SetDefault("extract.min_chars_rendered", 150)
	v.SetDefault("extract.min_chars_plain", 200)
	v.SetDefault("extract.report_fallback_chars", 300)

	v.SetDefault("domains.stealth", domain.DefaultStealthDomains)
	v.SetDefault("domains.profile", domain.DefaultProfileDomains)

	v.SetDefault("fetch.raw_fallback", true)

	v.SetDefault("fetch.light.enabled", true)
	v.SetDefault("fetch.light.timeout", 15*time.Second)
	v.SetDefault("fetch.light.user_agent", fetcher.DefaultUserAgent)

	v.SetDefault("fetch.stealth.enabled", true)
	v.SetDefault("fetch.stealth.timeout", 40*time.Second)
	v.SetDefault("fetch.stealth.browser_bin", "")
	v.SetDefault("fetch.stealth.control_url", "")
	v.SetDefault("fetch.stealth.headless", true)
	v.SetDefault("fetch.stealth.no_sandbox", false)
	v.SetDefault("fetch.stealth.proxy", "")
	v.SetDefault("fetch.stealth.settle", 8*time.Second)
	v.SetDefault("fetch.stealth.wait_selector", profileSelector)
	v.SetDefault("fetch.stealth.user_agent", fetcher.DefaultUserAgent)

	v.SetDefault("fetch.reader.endpoint", "")
	v.SetDefault("fetch.reader.token", "")
	v.SetDefault("fetch.reader.timeout", 45*time.Second)
	v.SetDefault("fetch.reader.wait_selector", profileSelector)

	v.SetDefault("fetch.raw.enabled", true)
	v.SetDefault("fetch.raw.timeout", 15*time.Second)
	v.SetDefault("fetch.raw.user_agent", fetcher.DefaultUserAgent)
}

// flagKeys maps command-line flags to config keys. Flags that are not
// defined on the command are skipped.
var flagKeys = map[string]string{
	"port":        "server.port",
	"debug":       "server.debug",
	"log-level":   "log.level",
	"browser":     "fetch.stealth.browser_bin",
	"control-url": "fetch.stealth.control_url",
	"proxy":       "fetch.stealth.proxy",
	"reader":      "fetch.reader.endpoint",
	"max-chars":   "extract.max_chars",
}

// Load reads configuration. An empty file means ./config.yaml when present;
// a named file must exist. flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("fetch.reader.token", EnvPrefix+"_FETCH_READER_TOKEN", "JINA_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind reader token: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			Debug:        v.GetBool("server.debug"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Extract: ExtractConfig{
			MaxChars:            v.GetInt("extract.max_chars"),
			MinCharsRendered:    v.GetInt("extract.min_chars_rendered"),
			MinCharsPlain:       v.GetInt("extract.min_chars_plain"),
			ReportFallbackChars: v.GetInt("extract.report_fallback_chars"),
		},
		Domains: DomainsConfig{
			Stealth: list(v.GetStringSlice("domains.stealth")),
			Profile: list(v.GetStringSlice("domains.profile")),
		},
		Fetch: FetchConfig{
			RawFallback: v.GetBool("fetch.raw_fallback"),
			Light: LightConfig{
				Enabled:   v.GetBool("fetch.light.enabled"),
				Timeout:   v.GetDuration("fetch.light.timeout"),
				UserAgent: v.GetString("fetch.light.user_agent"),
			},
			Stealth: StealthConfig{
				Enabled:      v.GetBool("fetch.stealth.enabled"),
				Timeout:      v.GetDuration("fetch.stealth.timeout"),
				BrowserBin:   v.GetString("fetch.stealth.browser_bin"),
				ControlURL:   v.GetString("fetch.stealth.control_url"),
				Headless:     v.GetBool("fetch.stealth.headless"),
				NoSandbox:    v.GetBool("fetch.stealth.no_sandbox"),
				Proxy:        v.GetString("fetch.stealth.proxy"),
				Settle:       v.GetDuration("fetch.stealth.settle"),
				WaitSelector: v.GetString("fetch.stealth.wait_selector"),
				UserAgent:    v.GetString("fetch.stealth.user_agent"),
			},
			Reader: ReaderConfig{
				Endpoint:     v.GetString("fetch.reader.endpoint"),
				Token:        v.GetString("fetch.reader.token"),
				Timeout:      v.GetDuration("fetch.reader.timeout"),
				WaitSelector: v.GetString("fetch.reader.wait_selector"),
			},
			Raw: RawConfig{
				Enabled:   v.GetBool("fetch.raw.enabled"),
				Timeout:   v.GetDuration("fetch.raw.timeout"),
				UserAgent: v.GetString("fetch.raw.user_agent"),
			},
		},
	}
}

// list accepts both YAML lists and comma-separated environment values.
func list(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	positive := map[string]int{
		"extract.max_chars":             c.Extract.MaxChars,
		"extract.min_chars_rendered":    c.Extract.MinCharsRendered,
		"extract.min_chars_plain":       c.Extract.MinCharsPlain,
		"extract.report_fallback_chars": c.Extract.ReportFallbackChars,
	}
	for key, n := range positive {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, n))
		}
	}
	timeouts := map[string]time.Duration{
		"server.read_timeout":   c.Server.ReadTimeout,
		"server.write_timeout":  c.Server.WriteTimeout,
		"fetch.light.timeout":   c.Fetch.Light.Timeout,
		"fetch.stealth.timeout": c.Fetch.Stealth.Timeout,
		"fetch.reader.timeout":  c.Fetch.Reader.Timeout,
		"fetch.raw.timeout":     c.Fetch.Raw.Timeout,
	}
	for key, d := range timeouts {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}
	if c.Fetch.Stealth.Settle < 0 {
		errs = append(errs, fmt.Errorf("fetch.stealth.settle must not be negative, got %s", c.Fetch.Stealth.Settle))
	}
	if c.Extract.MinCharsRendered > c.Extract.MaxChars || c.Extract.MinCharsPlain > c.Extract.MaxChars {
		errs = append(errs, errors.New("content thresholds exceed extract.max_chars"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
