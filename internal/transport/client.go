package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultTimeout bounds a single request including the body read.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the mirror to the servers it visits.
	DefaultUserAgent = "sitemirror/1.0 (+https://github.com/nao1215/sitemirror)"

	// DefaultMaxBodySize is the largest response body accepted.
	DefaultMaxBodySize int64 = 50 * 1024 * 1024

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

// Response is a fully read HTTP response.
type Response struct {
	// StatusCode is the HTTP status returned by the server.
	StatusCode int

	// Header holds the response headers. Lookups through Get are case-insensitive.
	Header http.Header

	// Body is the complete response body.
	Body []byte
}

// Text returns the body decoded as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// IsHTML reports whether the Content-Type header is exactly "text/html".
// Values with parameters, such as a charset, do not match.
func (r *Response) IsHTML() bool {
	return r.Header.Get("Content-Type") == "text/html"
}

// Client fetches URLs over HTTP(S).
type Client struct {
	httpClient   *http.Client
	roundTripper http.RoundTripper
	userAgent    string
	maxBodySize  int64
	timeout      time.Duration
	proxyAddress string
	cookie       string
	headers      map[string]string
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the largest response body accepted. Longer bodies
// fail with ErrBodyTooLarge.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithProxy routes all connections through the SOCKS5 proxy at "host:port".
func WithProxy(address string) Option {
	return func(c *Client) {
		c.proxyAddress = address
	}
}

// WithCookie sets a raw cookie string (e.g. "session=abc") added to every request.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithHeaders sets extra headers added to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithRoundTripper replaces the base transport. Mostly useful in tests.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.roundTripper = rt
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client. It validates the proxy address when one is set
// but does not contact the proxy.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.roundTripper
	if base == nil {
		t, err := c.newTransport()
		if err != nil {
			return nil, err
		}
		base = t
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var rt http.RoundTripper = base
	if c.cookie != "" || len(c.headers) > 0 {
		rt = &headerInjectingTransport{
			base:    base,
			cookie:  c.cookie,
			headers: c.headers,
		}
	}

	c.httpClient = &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return c, nil
}

// newTransport builds the base transport, dialing through SOCKS5 when a proxy
// address is configured.
func (c *Client) newTransport() (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	t.MaxIdleConnsPerHost = 4
	t.IdleConnTimeout = 30 * time.Second

	if c.proxyAddress == "" {
		return t, nil
	}
	if !isValidProxyAddress(c.proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.proxyAddress)
	}

	dialer, err := proxy.SOCKS5("tcp", c.proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	t.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		t.DialContext = cd.DialContext
	} else {
		t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return t, nil
}

// isValidProxyAddress checks that the address is "host:port" with a
// non-empty host and a port between 1 and 65535.
func isValidProxyAddress(address string) bool {
	if strings.Count(address, ":") != 1 {
		return false
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Fetch issues a GET request for rawURL and reads the whole body.
// Any HTTP status is a successful fetch; errors wrap ErrTransport.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body of %s: %w", ErrTransport, rawURL, err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: %s: %w (limit %d bytes)", ErrTransport, rawURL, ErrBodyTooLarge, c.maxBodySize)
	}

	c.logger.Debug("fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and a cookie into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
