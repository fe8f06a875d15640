package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// linkAttr is an element/attribute pair whose value is treated as a link.
type linkAttr struct {
	element string
	attr    string
}

// linkAttrs are visited in this order; each group is walked in document order.
var linkAttrs = []linkAttr{
	{element: "a", attr: "href"},
	{element: "img", attr: "src"},
}

// Rewritten is the result of Rewrite.
type Rewritten struct {
	// HTML is the serialized document after rewriting.
	HTML string

	// Links holds every collected link value in collection order.
	// Duplicates are kept.
	Links []string
}

// Rewrite makes same-host links in doc work offline and collects all links.
//
// For every <a href> and then every <img src>, a value whose hostname equals
// hostname, ignoring letter case, loses its scheme, userinfo and host so it
// resolves against the mirror, and the rewritten value is collected. Values
// pointing elsewhere, or that do not parse as URLs, are collected unchanged.
// mailto: links, in any letter case, are neither rewritten nor collected.
//
// If the document cannot be parsed it is returned unchanged with no links;
// if it cannot be serialized the original text is returned with the links.
func Rewrite(doc, hostname string) Rewritten {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return Rewritten{HTML: doc}
	}

	links := make([]string, 0)
	for _, la := range linkAttrs {
		for _, n := range findElements(root, la.element) {
			for i := range n.Attr {
				a := &n.Attr[i]
				if a.Namespace != "" || a.Key != la.attr {
					continue
				}
				if link, ok := rewriteValue(a, hostname); ok {
					links = append(links, link)
				}
				break
			}
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return Rewritten{HTML: doc, Links: links}
	}
	return Rewritten{HTML: buf.String(), Links: links}
}

// rewriteValue rewrites a single attribute in place and returns the value to
// collect. ok is false for values that must not be collected.
func rewriteValue(a *html.Attribute, hostname string) (string, bool) {
	u, err := url.Parse(a.Val)
	if err != nil {
		if isMailto(a.Val) {
			return "", false
		}
		return a.Val, true
	}
	if u.Scheme == "mailto" {
		return "", false
	}
	if u.Host == "" || !strings.EqualFold(u.Hostname(), hostname) {
		return a.Val, true
	}
	u.Scheme = ""
	u.User = nil
	u.Host = ""
	a.Val = u.String()
	return a.Val, true
}

// isMailto reports whether v starts with a mailto: scheme in any letter case.
func isMailto(v string) bool {
	const prefix = "mailto:"
	return len(v) >= len(prefix) && strings.EqualFold(v[:len(prefix)], prefix)
}

// findElements returns the element nodes named tag in document order.
func findElements(root *html.Node, tag string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}
