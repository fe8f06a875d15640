package robots

import (
	"net/url"

	"github.com/temoto/robotstxt"
)

// Policy answers whether an agent may fetch a URL.
type Policy interface {
	CanFetch(agent, rawURL string) bool
}

// Parser turns a manifest body into a Policy.
type Parser func(body []byte) (Policy, error)

// AllowAll permits every URL. It stands in for manifests that are missing or
// unreachable.
type AllowAll struct{}

// CanFetch always returns true.
func (AllowAll) CanFetch(string, string) bool {
	return true
}

// manifestPolicy is a parsed robots.txt.
type manifestPolicy struct {
	data *robotstxt.RobotsData
}

// CanFetch tests the URL's request URI (path plus query) against the rules of
// the group matching agent.
func (m manifestPolicy) CanFetch(agent, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return m.data.TestAgent(u.RequestURI(), agent)
}

// Parse parses a robots.txt body. An empty body allows everything; a body with
// invalid directives returns the parser's error.
func Parse(body []byte) (Policy, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}
	return manifestPolicy{data: data}, nil
}
