package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "webindex"

	// DefaultMaxDepth crawls the seeds and the pages they link to.
	DefaultMaxDepth = 1

	// DefaultPageLimit is the maximum number of documents extracted per run.
	DefaultPageLimit = 50

	// DefaultDelay is the minimum spacing between two requests to the same origin.
	DefaultDelay = 1 * time.Second

	// DefaultTimeout is the per-request timeout for page fetches.
	DefaultTimeout = 10 * time.Second

	// DefaultRobotsTimeout is the per-request timeout for robots.txt fetches.
	// It is shorter than DefaultTimeout so an unresponsive host cannot stall
	// the crawl on its policy lookup.
	DefaultRobotsTimeout = 5 * time.Second

	// DefaultWorkers keeps the crawl sequential.
	DefaultWorkers = 1

	// DefaultUserAgent is the declared crawler identity.
	DefaultUserAgent = "webindex/1.0 (+https://github.com/nao1215/webindex)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DocumentsFile is the crawl output consumed by the indexer.
	DocumentsFile = "documents.json"

	// IndexFile holds the term to posting list mapping.
	IndexFile = "inverted_index.json"

	// DocumentMapFile holds the document id to metadata mapping.
	DocumentMapFile = "inverted_index_doc_map.json"
)

// Config holds all configuration options for webindex.
// It is populated from CLI flags and passed to components explicitly.
type Config struct {
	// Seeds are the URLs the crawl starts from, at depth 0.
	Seeds []string

	// MaxDepth is the maximum link distance from a seed that is fetched.
	MaxDepth int

	// PageLimit is the maximum number of documents a crawl extracts.
	PageLimit int

	// Delay is the politeness delay between requests to the same origin.
	Delay time.Duration

	// Timeout is the per-request timeout for page fetches.
	Timeout time.Duration

	// RobotsTimeout is the per-request timeout for robots.txt fetches.
	RobotsTimeout time.Duration

	// UserAgent is the crawler identity used for robots.txt matching and
	// the User-Agent request header.
	UserAgent string

	// SameOrigin restricts discovered links to the origin of the page they
	// were found on.
	SameOrigin bool

	// Workers is the number of frontier entries processed concurrently.
	Workers int

	// MaxBodySize limits how many bytes of a response body are read.
	MaxBodySize int64

	// DataDir is where documents, index and the crawl log are stored.
	DataDir string

	// ConfigFilePath is the explicit path to the YAML configuration file.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the configuration file.
	SiteConfigs *File

	// MetricsFile, when set, receives a Prometheus text exposition of the
	// run's metrics after the command finishes.
	MetricsFile string

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport selects JSON output.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool
}

// NewConfig creates a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:      DefaultMaxDepth,
		PageLimit:     DefaultPageLimit,
		Delay:         DefaultDelay,
		Timeout:       DefaultTimeout,
		RobotsTimeout: DefaultRobotsTimeout,
		UserAgent:     DefaultUserAgent,
		SameOrigin:    true,
		Workers:       DefaultWorkers,
		MaxBodySize:   DefaultMaxBodySize,
		DataDir:       XDGDataDir(),
		SiteConfigs:   NewFile(),
	}
}

// XDGDataDir returns the default data directory, e.g. ~/.local/share/webindex.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG configuration directory for webindex.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DocumentsPath returns the location of the crawl output.
func (c *Config) DocumentsPath() string {
	return filepath.Join(c.DataDir, DocumentsFile)
}

// IndexPath returns the location of the inverted index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, IndexFile)
}

// DocumentMapPath returns the location of the document map.
func (c *Config) DocumentMapPath() string {
	return filepath.Join(c.DataDir, DocumentMapFile)
}

// Validate checks the crawl related settings.
// Returns nil if valid, or the first sentinel error that applies.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	for _, seed := range c.Seeds {
		if !isHTTPURL(seed) {
			return ErrInvalidSeed
		}
	}
	return c.ValidateLimits()
}

// ValidateLimits checks every setting except the seeds. Commands that do
// not crawl (index, search) call it instead of Validate.
func (c *Config) ValidateLimits() error {
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	if c.PageLimit <= 0 {
		return ErrInvalidPageLimit
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 || c.RobotsTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.UserAgent == "" {
		return ErrEmptyUserAgent
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
