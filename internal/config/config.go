package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/sitemirror/internal/transport"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitemirror"

	// DefaultOutputDir is where the <hostname> directory is created.
	DefaultOutputDir = "."

	// DefaultMaxDepth means no depth limit.
	DefaultMaxDepth = -1

	// DefaultMaxPages means no fetch cap.
	DefaultMaxPages = 0

	// DefaultWorkers keeps fetching sequential.
	DefaultWorkers = 1

	// DefaultReportFormat is the human-readable report.
	DefaultReportFormat = "text"
)

// reportFormats lists the accepted report format names.
var reportFormats = []string{"text", "json", "markdown", "md"}

// Config holds all options of one mirror run. It is filled from CLI flags,
// then adjusted by the matching entry of the site file.
type Config struct {
	// Target is the root URL to mirror.
	Target string

	// OutputDir is the directory under which the mirror is written.
	OutputDir string

	// MaxDepth is the maximum link distance from the root; -1 is unlimited.
	MaxDepth int

	// MaxPages caps the number of URLs attempted; 0 is unlimited.
	MaxPages int

	// Workers is the number of URLs of one level fetched concurrently.
	Workers int

	// Timeout bounds each HTTP request including the body read.
	Timeout time.Duration

	// UserAgent is sent with every request, robots.txt included.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// MaxBodySize caps the bytes kept from a response body; 0 uses the
	// transport default.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// Quiet disables the progress indicator.
	Quiet bool

	// ConfigFilePath is an explicit site file path. When empty the file is
	// searched for, see FindConfigFile.
	ConfigFilePath string

	// SiteConfigs holds the loaded site file, if any.
	SiteConfigs *File

	// Site is the effective configuration for the target's host.
	Site SiteConfig

	// ReportFormat is one of text, json or markdown.
	ReportFormat string

	// ReportFile receives the report instead of stdout when set.
	ReportFile string

	// DBDir is the directory of the crawl journal.
	DBDir string

	// SaveToDB records the run in the crawl journal.
	SaveToDB bool

	// MetricsFile receives a Prometheus textfile at the end of the run.
	MetricsFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:    DefaultOutputDir,
		MaxDepth:     DefaultMaxDepth,
		MaxPages:     DefaultMaxPages,
		Workers:      DefaultWorkers,
		Timeout:      transport.DefaultTimeout,
		UserAgent:    transport.DefaultUserAgent,
		MaxBodySize:  transport.DefaultMaxBodySize,
		ReportFormat: DefaultReportFormat,
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// XDGDataDir returns the directory holding the crawl journal
// (~/.local/share/sitemirror on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the sitemirror config directory
// (~/.config/sitemirror on Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Overrides tells ApplySite which values were set explicitly on the
// command line and must not be replaced by the site file.
type Overrides struct {
	MaxDepth  bool
	MaxPages  bool
	UserAgent bool
}

// ApplySite makes site the effective site configuration and copies its
// depth, page cap and user agent into c unless they were set explicitly.
func (c *Config) ApplySite(site SiteConfig, set Overrides) {
	c.Site = site
	if site.Depth != nil && !set.MaxDepth {
		c.MaxDepth = *site.Depth
	}
	if site.MaxPages != nil && !set.MaxPages {
		c.MaxPages = *site.MaxPages
	}
	if site.UserAgent != "" && !set.UserAgent {
		c.UserAgent = site.UserAgent
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxDepth < -1 {
		return ErrInvalidMaxDepth
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ReportFormat != "" && !slices.Contains(reportFormats, strings.ToLower(c.ReportFormat)) {
		return ErrInvalidReportFormat
	}
	return c.Site.Validate()
}
