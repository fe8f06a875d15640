package crawler

import (
	"slices"
	"strings"
	"testing"
)

// TestRewrite tests link rewriting and collection.
func TestRewrite(t *testing.T) {
	t.Parallel()

	t.Run("same-host links become host-relative", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body>
<a href="http://example.com/a?x=1#frag">A</a>
<a href="http://other.org/page">Other</a>
<a href="rel.html">Rel</a>
<a href="/abs">Abs</a>
</body></html>`

		got := Rewrite(doc, "example.com")

		want := []string{"/a?x=1#frag", "http://other.org/page", "rel.html", "/abs"}
		if !slices.Equal(got.Links, want) {
			t.Errorf("Links = %q, want %q", got.Links, want)
		}
		if !strings.Contains(got.HTML, `href="/a?x=1#frag"`) {
			t.Errorf("expected rewritten href in output, got %s", got.HTML)
		}
		if strings.Contains(got.HTML, "http://example.com") {
			t.Errorf("expected no absolute same-host links left, got %s", got.HTML)
		}
		if !strings.Contains(got.HTML, `href="http://other.org/page"`) {
			t.Errorf("expected external link untouched, got %s", got.HTML)
		}
	})

	t.Run("anchors are collected before images", func(t *testing.T) {
		t.Parallel()

		doc := `<img src="http://example.com/logo.png"><a href="/one">1</a><img src="/two.png"><a href="/three">3</a>`
		got := Rewrite(doc, "example.com")

		want := []string{"/one", "/three", "/logo.png", "/two.png"}
		if !slices.Equal(got.Links, want) {
			t.Errorf("Links = %q, want %q", got.Links, want)
		}
		if !strings.Contains(got.HTML, `src="/logo.png"`) {
			t.Errorf("expected rewritten img src, got %s", got.HTML)
		}
	})

	t.Run("duplicates are retained", func(t *testing.T) {
		t.Parallel()

		got := Rewrite(`<a href="/x">a</a><a href="/x">b</a>`, "example.com")
		if !slices.Equal(got.Links, []string{"/x", "/x"}) {
			t.Errorf("Links = %q", got.Links)
		}
	})

	t.Run("mailto links are neither rewritten nor collected", func(t *testing.T) {
		t.Parallel()

		got := Rewrite(`<a href="mailto:admin@example.com">mail</a>`, "example.com")
		if len(got.Links) != 0 {
			t.Errorf("expected no links, got %q", got.Links)
		}
		if !strings.Contains(got.HTML, `href="mailto:admin@example.com"`) {
			t.Errorf("expected mailto untouched, got %s", got.HTML)
		}
	})

	t.Run("userinfo and port are dropped with the host", func(t *testing.T) {
		t.Parallel()

		got := Rewrite(`<a href="https://user:pw@example.com:8443/p/q">x</a>`, "example.com")
		if !slices.Equal(got.Links, []string{"/p/q"}) {
			t.Errorf("Links = %q", got.Links)
		}
	})

	t.Run("hostname comparison ignores letter case", func(t *testing.T) {
		t.Parallel()

		got := Rewrite(`<a href="http://EXAMPLE.com/x">x</a><a href="http://Example.Com/y">y</a>`, "example.com")
		if !slices.Equal(got.Links, []string{"/x", "/y"}) {
			t.Errorf("Links = %q", got.Links)
		}
		if strings.Contains(strings.ToLower(got.HTML), "http://example.com") {
			t.Errorf("expected mixed-case same-host links rewritten, got %s", got.HTML)
		}
	})

	t.Run("mailto scheme is matched in any case", func(t *testing.T) {
		t.Parallel()

		for _, v := range []string{"MAILTO:me@example.com", "MailTo:me@example.com", "mAiLtO:me@example.com?subject=%zz"} {
			got := Rewrite(`<a href="`+v+`">m</a>`, "example.com")
			if len(got.Links) != 0 {
				t.Errorf("%s: expected no links, got %q", v, got.Links)
			}
			if !strings.Contains(got.HTML, `href="`+v+`"`) {
				t.Errorf("%s: expected value untouched, got %s", v, got.HTML)
			}
		}
	})

	t.Run("unparseable values are collected unchanged", func(t *testing.T) {
		t.Parallel()

		got := Rewrite(`<a href="http://[::1">bad</a>`, "example.com")
		if !slices.Equal(got.Links, []string{"http://[::1"}) {
			t.Errorf("Links = %q", got.Links)
		}
	})

	t.Run("elements without the attribute are ignored", func(t *testing.T) {
		t.Parallel()

		got := Rewrite(`<a name="top">top</a><img alt="none"><link href="/style.css">`, "example.com")
		if len(got.Links) != 0 {
			t.Errorf("expected no links, got %q", got.Links)
		}
	})

	t.Run("document without links keeps its text", func(t *testing.T) {
		t.Parallel()

		got := Rewrite("just some text", "example.com")
		if len(got.Links) != 0 {
			t.Errorf("expected no links, got %q", got.Links)
		}
		if !strings.Contains(got.HTML, "just some text") {
			t.Errorf("expected text preserved, got %s", got.HTML)
		}
	})
}
