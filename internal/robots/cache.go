package robots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/nao1215/sitemirror/internal/transport"
	"golang.org/x/sync/singleflight"
)

// DefaultAgent is the user-agent token policies are evaluated for.
const DefaultAgent = "*"

var (
	// ErrUnreadableManifest is returned when a robots.txt was served
	// successfully but could not be parsed.
	ErrUnreadableManifest = errors.New("unreadable robots.txt")

	// ErrNoOrigin is returned for URLs without a scheme and host.
	ErrNoOrigin = errors.New("url has no origin")
)

// Fetcher retrieves a manifest. *transport.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*transport.Response, error)
}

// Cache holds one Policy per manifest URL.
// It is safe for concurrent use; concurrent first lookups for the same origin
// share a single fetch.
type Cache struct {
	fetcher Fetcher
	parse   Parser
	agent   string
	logger  *slog.Logger

	mu       sync.RWMutex
	policies map[string]Policy
	group    singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithParser replaces the manifest parser.
func WithParser(p Parser) Option {
	return func(c *Cache) {
		if p != nil {
			c.parse = p
		}
	}
}

// WithAgent sets the user-agent token policies are evaluated for.
func WithAgent(agent string) Option {
	return func(c *Cache) {
		if agent != "" {
			c.agent = agent
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates an empty Cache that fetches manifests with fetcher.
func NewCache(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher:  fetcher,
		parse:    Parse,
		agent:    DefaultAgent,
		logger:   slog.Default(),
		policies: make(map[string]Policy),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ManifestURL returns scheme://host[:port]/robots.txt for rawURL.
func ManifestURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNoOrigin, rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrNoOrigin, rawURL)
	}
	return u.Scheme + "://" + u.Host + "/robots.txt", nil
}

// IsAllowed reports whether rawURL may be fetched. The first call for an
// origin fetches and caches its manifest.
func (c *Cache) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	manifestURL, err := ManifestURL(rawURL)
	if err != nil {
		return false, err
	}
	policy, err := c.policy(ctx, manifestURL)
	if err != nil {
		return false, err
	}
	return policy.CanFetch(c.agent, rawURL), nil
}

// Len returns the number of cached manifests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.policies)
}

func (c *Cache) lookup(manifestURL string) (Policy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.policies[manifestURL]
	return p, ok
}

func (c *Cache) policy(ctx context.Context, manifestURL string) (Policy, error) {
	if p, ok := c.lookup(manifestURL); ok {
		return p, nil
	}

	v, err, _ := c.group.Do(manifestURL, func() (any, error) {
		if p, ok := c.lookup(manifestURL); ok {
			return p, nil
		}
		p, err := c.load(ctx, manifestURL)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.policies[manifestURL]; ok {
			return existing, nil
		}
		c.policies[manifestURL] = p
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Policy), nil //nolint:forcetypeassert // only Policy values are returned above
}

// load fetches and parses one manifest.
func (c *Cache) load(ctx context.Context, manifestURL string) (Policy, error) {
	resp, err := c.fetcher.Fetch(ctx, manifestURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Debug("robots.txt unreachable, allowing all", "manifest", manifestURL, "error", err)
		return AllowAll{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("robots.txt not served, allowing all", "manifest", manifestURL, "status", resp.StatusCode)
		return AllowAll{}, nil
	}

	p, err := c.parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableManifest, manifestURL, err)
	}
	c.logger.Debug("robots.txt loaded", "manifest", manifestURL)
	return p, nil
}
