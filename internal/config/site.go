package config

import (
	"fmt"
	"maps"
	"net"
	"path"
	"strings"
)

// SiteConfig holds settings for one host.
type SiteConfig struct {
	// UserAgent replaces the default User-Agent for this host.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is sent with every request to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the default depth limit. Nil means unset, so that an
	// explicit 0 (root page only) can be expressed.
	Depth *int `yaml:"depth,omitempty"`

	// MaxPages overrides the fetch cap. Nil means unset.
	MaxPages *int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are glob patterns of URL paths that are never followed.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict following to matching URL paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// Validate checks that every pattern is valid glob syntax.
func (s SiteConfig) Validate() error {
	for _, patterns := range [][]string{s.IgnorePatterns, s.FollowPatterns} {
		for _, p := range patterns {
			if _, err := path.Match(p, ""); err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
			}
		}
	}
	if s.Depth != nil && *s.Depth < -1 {
		return ErrInvalidMaxDepth
	}
	if s.MaxPages != nil && *s.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	return nil
}

// File is the structure of the .sitemirror configuration file.
type File struct {
	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps a host ("example.com" or "example.com:8080") to its settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// Validate checks the defaults and every site entry.
func (cf *File) Validate() error {
	if err := cf.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for host, site := range cf.Sites {
		if err := site.Validate(); err != nil {
			return fmt.Errorf("site %s: %w", host, err)
		}
	}
	return nil
}

// GetSiteConfig returns the defaults merged with the entry for host.
// An entry keyed by host:port is preferred over one keyed by the bare
// hostname. Host names are matched case-insensitively.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.lookup(host)
	if !ok {
		return result
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.Depth != nil {
		result.Depth = site.Depth
	}
	if site.MaxPages != nil {
		result.MaxPages = site.MaxPages
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	candidates := []string{host}
	if h, _, err := net.SplitHostPort(host); err == nil {
		candidates = append(candidates, h)
	}
	for _, c := range candidates {
		for key, site := range cf.Sites {
			if strings.ToLower(key) == c {
				return site, true
			}
		}
	}
	return SiteConfig{}, false
}
