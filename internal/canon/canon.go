package canon

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
)

// RootLeaf is the file name used when a URL path has no final segment,
// e.g. "http://example.com/" or "http://example.com/docs/".
const RootLeaf = "__root__"

// ErrNoHost is returned by Absolute when the canonical URL has no host.
var ErrNoHost = errors.New("url has no host")

// Canonicalize parses raw and reduces it to its canonical form.
//
// If the URL has no host and defaultOrigin is non-nil, the scheme and host
// are taken from defaultOrigin (scheme falls back to "http") and a relative
// path is resolved against the origin's root. Non-hierarchical URLs such as
// "javascript:void(0)" or "tel:123" are stripped but otherwise left alone,
// so they never share an origin with an http site.
func Canonicalize(raw string, defaultOrigin *url.URL) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	strip(u)
	if u.Opaque != "" {
		return u, nil
	}

	if defaultOrigin != nil {
		u = complete(u, defaultOrigin)
	}

	u.Host = strings.ToLower(u.Host)
	if u.Host != "" && u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u, nil
}

// String is Canonicalize returning the canonical string.
func String(raw string, defaultOrigin *url.URL) (string, error) {
	u, err := Canonicalize(raw, defaultOrigin)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Absolute canonicalizes raw without a default origin and requires an
// http or https URL with a host.
func Absolute(raw string) (*url.URL, error) {
	u, err := Canonicalize(raw, nil)
	if err != nil {
		return nil, err
	}
	if !isHTTP(u.Scheme) || u.Host == "" {
		return nil, ErrNoHost
	}
	return u, nil
}

// Origin returns "scheme://host[:port]" of u.
func Origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// SameOrigin reports whether a and b share scheme, host and port.
func SameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && a.Host == b.Host
}

// StoragePath derives the relative file path for u: the hostname followed
// by every non-empty path segment. The leaf is RootLeaf when the path is
// empty or ends with a slash. Dot segments are dropped so the result never
// leaves the host directory.
//
// Distinct URLs may map to the same path (e.g. differing only in
// percent-encoding); the later write wins.
func StoragePath(u *url.URL) string {
	escaped := u.EscapedPath()

	parts := []string{u.Hostname()}
	for _, seg := range strings.Split(escaped, "/") {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		parts = append(parts, seg)
	}

	if len(parts) == 1 || strings.HasSuffix(escaped, "/") {
		parts = append(parts, RootLeaf)
	}

	return filepath.Join(parts...)
}

// strip removes path parameters, query and fragment.
func strip(u *url.URL) {
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	if u.Opaque != "" {
		return
	}

	// Parameters only attach to the last path segment.
	p := u.EscapedPath()
	last := strings.LastIndexByte(p, '/') + 1
	if i := strings.IndexByte(p[last:], ';'); i >= 0 {
		p = p[:last+i]
		if unescaped, err := url.PathUnescape(p); err == nil {
			u.Path = unescaped
			u.RawPath = p
		}
	}
}

// complete fills a missing scheme or host from origin.
func complete(u, origin *url.URL) *url.URL {
	if u.Host != "" {
		if u.Scheme == "" {
			u.Scheme = originScheme(origin)
		}
		return u
	}

	if u.Scheme != "" && !isHTTP(u.Scheme) {
		return u
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = originScheme(origin)
	}

	ref := *u
	ref.Scheme = ""
	base := &url.URL{Scheme: scheme, Host: origin.Host, Path: "/"}
	return base.ResolveReference(&ref)
}

func originScheme(origin *url.URL) string {
	if origin.Scheme == "" {
		return "http"
	}
	return strings.ToLower(origin.Scheme)
}

func isHTTP(scheme string) bool {
	return scheme == "http" || scheme == "https"
}
