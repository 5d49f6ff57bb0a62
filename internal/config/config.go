package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultBaseURL is the address prefix every page reference is appended to.
	DefaultBaseURL = "http://roglo.eu/roglo?"

	// DefaultDelay is waited before every request, including recursive ones.
	// The source site is a volunteer project; two seconds keeps the crawl polite.
	DefaultDelay = 2 * time.Second

	// DefaultTimeout is the timeout for one HTTP request.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent looks like an ordinary browser. The site refuses
	// pages to clients it considers to be robots.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultAcceptLanguage selects the French pages, whose section headings
	// and provenance keywords are the primary vocabulary.
	DefaultAcceptLanguage = "fr-FR,fr;q=0.9,en;q=0.5"

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultProvenanceLabel is written as the attribute type of every
	// exported person.
	DefaultProvenanceLabel = "Roglo"

	// DefaultDBFile is the database file name.
	DefaultDBFile = "ancestry.sqlite3"

	// DefaultCacheFile is the cache snapshot file name.
	DefaultCacheFile = "cache.json"

	// DefaultExportFile is the interchange export file name.
	DefaultExportFile = "export.csv"

	// AppName is the application name used for XDG directory paths.
	AppName = "ancestry"
)

// Report formats for the run summary.
const (
	ReportFormatText     = "text"
	ReportFormatMarkdown = "markdown"
	ReportFormatJSON     = "json"
)

// Config holds all configuration options for one ancestry invocation.
// It is populated from CLI flags and the optional configuration file and
// passed through the application rather than kept in global state.
type Config struct {
	// BaseURL is the address prefix references are appended to.
	BaseURL string

	// Delay is waited before every request.
	Delay time.Duration

	// Timeout is the timeout of one HTTP request.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// AcceptLanguage is the Accept-Language header sent with every request.
	AcceptLanguage string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "[user:password@]host:port" format.
	ProxyAddress string

	// Cookie is an optional cookie sent with every request.
	Cookie string

	// Headers are extra headers sent with every request.
	Headers map[string]string

	// ProvenanceLabel is the attribute type written by the export.
	ProvenanceLabel string

	// Vocabulary recognizes sections and provenance text on a page.
	Vocabulary Vocabulary

	// DBFile is the path of the SQLite database.
	DBFile string

	// RotateDB moves an existing database aside before a crawl.
	RotateDB bool

	// CacheFile is the path of the cache snapshot.
	CacheFile string

	// ExportFile is the path of the interchange export.
	// Empty disables the export.
	ExportFile string

	// ReportFormat selects the run summary format: text, markdown or json.
	ReportFormat string

	// ReportFile is the output path of the run summary. Empty means stdout.
	ReportFile string

	// ConfigFilePath is the path of the configuration file.
	// If empty, .ancestry is searched in the current and home directories.
	ConfigFilePath string

	// Verbose enables debug logging.
	Verbose bool

	// Targets are the page references or full URLs to crawl.
	Targets []string

	// ExternalIDs are matched positionally to Targets.
	ExternalIDs []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		Delay:           DefaultDelay,
		Timeout:         DefaultTimeout,
		UserAgent:       DefaultUserAgent,
		AcceptLanguage:  DefaultAcceptLanguage,
		MaxBodySize:     DefaultMaxBodySize,
		ProvenanceLabel: DefaultProvenanceLabel,
		Vocabulary:      DefaultVocabulary(),
		DBFile:          filepath.Join(XDGDataDir(), DefaultDBFile),
		RotateDB:        true,
		CacheFile:       filepath.Join(XDGCacheDir(), DefaultCacheFile),
		ExportFile:      DefaultExportFile,
		ReportFormat:    ReportFormatText,
	}
}

// XDGDataDir returns the XDG data directory for ancestry.
// On Linux: ~/.local/share/ancestry
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ancestry.
// On Linux: ~/.config/ancestry
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for ancestry.
// On Linux: ~/.cache/ancestry
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// ExternalID returns the external identifier for the i-th target,
// or an empty string when none was given.
func (c *Config) ExternalID(i int) string {
	if i < 0 || i >= len(c.ExternalIDs) {
		return ""
	}
	return c.ExternalIDs[i]
}

// ApplyFile overlays the settings of a configuration file.
// Only non-zero values override the current configuration.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	s := f.Site
	if s.BaseURL != "" {
		c.BaseURL = s.BaseURL
	}
	if s.Delay != 0 {
		c.Delay = s.Delay
	}
	if s.UserAgent != "" {
		c.UserAgent = s.UserAgent
	}
	if s.AcceptLanguage != "" {
		c.AcceptLanguage = s.AcceptLanguage
	}
	if s.Cookie != "" {
		c.Cookie = s.Cookie
	}
	if s.Proxy != "" {
		c.ProxyAddress = s.Proxy
	}
	if s.ProvenanceLabel != "" {
		c.ProvenanceLabel = s.ProvenanceLabel
	}
	if len(s.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		for k, v := range s.Headers {
			c.Headers[k] = v
		}
	}
	c.Vocabulary = c.Vocabulary.Merge(f.Vocabulary)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.ReportFormat {
	case ReportFormatText, ReportFormatMarkdown, ReportFormatJSON:
	default:
		return ErrUnknownReportFormat
	}

	if c.DBFile == "" {
		return ErrNoDatabase
	}

	return nil
}
