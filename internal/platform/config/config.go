package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	errInvalidPort           = errors.New("config: invalid port number")
	errConcurrencyOutOfRange = errors.New("config: link_check_concurrency must be 1-100")
	errMaxConcurrency        = errors.New("config: max_concurrency must be 1-100")
	errNegativeDepth         = errors.New("config: max_depth cannot be negative")
	errNegativePages         = errors.New("config: max_pages cannot be negative")
	errInvalidTimeout        = errors.New("config: timeout must be positive")
	errRetriesOutOfRange     = errors.New("config: audit_retries must be 0-10")
	errInvalidLogFormat      = errors.New("config: log_format must be json or text")
)

// DefaultExcludeFileTypes are extensions the crawler never fetches.
var DefaultExcludeFileTypes = []string{
	"gif", "jpg", "jpeg", "png", "ico", "bmp", "ogg", "webp", "mp4", "webm", "mp3",
	"ttf", "woff", "woff2", "eot", "json", "rss", "atom", "gz", "zip", "rar", "7z",
	"css", "js", "gzip", "exe", "svg", "xml",
}

// DefaultExcludeURLs are path fragments the crawler never fetches.
var DefaultExcludeURLs = []string{"/wp-json/"}

// Config holds all application configuration.
type Config struct {
	Port      string `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Audit Options `mapstructure:",squash"`
}

// Options are the recognized audit options.
type Options struct {
	MaxDepth            int           `mapstructure:"max_depth" json:"maxDepth"`
	MaxPages            int           `mapstructure:"max_pages" json:"maxPages"`
	UserAgent           string        `mapstructure:"user_agent" json:"userAgent"`
	RespectRobotsTxt    bool          `mapstructure:"respect_robots_txt" json:"respectRobotsTxt"`
	Timeout             time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxConcurrency      int           `mapstructure:"max_concurrency" json:"maxConcurrency"`
	DownloadUnsupported bool          `mapstructure:"download_unsupported" json:"downloadUnsupported"`
	ExcludeFileTypes    []string      `mapstructure:"exclude_file_types" json:"excludeFileTypes"`
	ExcludeURLs         []string      `mapstructure:"exclude_urls" json:"excludeURLs"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second" json:"requestsPerSecond"`

	IgnoreSSLTest              bool `mapstructure:"ignore_ssl_test" json:"ignoreSSLTest"`
	IgnoreRobotsTest           bool `mapstructure:"ignore_robots_test" json:"ignoreRobotsTest"`
	IgnoreSitemapTest          bool `mapstructure:"ignore_sitemap_test" json:"ignoreSitemapTest"`
	IgnoreInternalPagesIssues  bool `mapstructure:"ignore_internal_pages_issues" json:"ignoreInternalPagesIssues"`
	IgnoreBrowserAudit         bool `mapstructure:"ignore_browser_audit" json:"ignoreBrowserAudit"`
	IgnoreBrokenLinksTest      bool `mapstructure:"ignore_broken_links_test" json:"ignoreBrokenLinksTest"`
	IgnoreDuplicateContentTest bool `mapstructure:"ignore_duplicate_content_test" json:"ignoreDuplicateContentTest"`

	UseTerminalOption    bool   `mapstructure:"use_terminal_option" json:"useTerminalOption"`
	AuditRetries         int    `mapstructure:"audit_retries" json:"auditRetries"`
	PageSpeedAPIKey      string `mapstructure:"pagespeed_api_key" json:"-"`
	LighthouseBinary     string `mapstructure:"lighthouse_binary" json:"lighthouseBinary"`
	LinkCheckConcurrency int    `mapstructure:"link_check_concurrency" json:"linkCheckConcurrency"`
	AllowPrivateNetworks bool   `mapstructure:"allow_private_networks" json:"allowPrivateNetworks"`
}

func defaults() map[string]any {
	return map[string]any{
		"port":       "8080",
		"log_level":  "ERROR",
		"log_format": "json",

		"max_depth":            1,
		"max_pages":            100,
		"user_agent":           "SEOAuditBot/1.0",
		"respect_robots_txt":   true,
		"timeout":              30 * time.Second,
		"max_concurrency":      1,
		"download_unsupported": false,
		"exclude_file_types":   DefaultExcludeFileTypes,
		"exclude_urls":         DefaultExcludeURLs,
		"requests_per_second":  0.0,

		"ignore_ssl_test":               false,
		"ignore_robots_test":            false,
		"ignore_sitemap_test":           false,
		"ignore_internal_pages_issues":  false,
		"ignore_browser_audit":          false,
		"ignore_broken_links_test":      false,
		"ignore_duplicate_content_test": false,

		"use_terminal_option":    false,
		"audit_retries":          3,
		"pagespeed_api_key":      "",
		"lighthouse_binary":      "lighthouse",
		"link_check_concurrency": 10,
		"allow_private_networks": false,
	}
}

// Load reads configuration with the following precedence (lowest to highest):
// defaults, config file (./seoaudit.yaml, ~/seoaudit.yaml or
// $XDG_CONFIG_HOME/seoaudit/seoaudit.yaml), SEOAUDIT_* environment variables,
// and finally any changed flag in flags whose name matches a key with
// dashes in place of underscores. Both configPath and flags are optional.
func Load(configPath string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	v.SetConfigName("seoaudit")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "seoaudit"))
		}
	}

	v.SetEnvPrefix("SEOAUDIT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	if flags != nil {
		known := defaults()
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := known[key]; !ok || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("config: bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: got %q", errInvalidLogFormat, c.LogFormat)
	}

	return c.Audit.Validate()
}

// Validate checks the audit options for out-of-range values.
func (o Options) Validate() error {
	if o.LinkCheckConcurrency < 1 || o.LinkCheckConcurrency > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, o.LinkCheckConcurrency)
	}
	if o.MaxConcurrency < 1 || o.MaxConcurrency > 100 {
		return fmt.Errorf("%w: got %d", errMaxConcurrency, o.MaxConcurrency)
	}
	if o.MaxDepth < 0 {
		return fmt.Errorf("%w: got %d", errNegativeDepth, o.MaxDepth)
	}
	if o.MaxPages < 0 {
		return fmt.Errorf("%w: got %d", errNegativePages, o.MaxPages)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("%w: got %s", errInvalidTimeout, o.Timeout)
	}
	if o.AuditRetries < 0 || o.AuditRetries > 10 {
		return fmt.Errorf("%w: got %d", errRetriesOutOfRange, o.AuditRetries)
	}
	return nil
}
