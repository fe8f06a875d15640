package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/robots"
	"github.com/nao1215/sitemirror/internal/store"
	"github.com/nao1215/sitemirror/internal/transport"
)

// newSite serves a small site:
//
//	/            -> /a, /b (twice, once path-relative), /private/secret, other host, mailto
//	/a           -> /c, / (cycle)
//	/b           -> /img.png
//	/c           -> /d
//	/d           -> nothing
//	/robots.txt  -> Disallow: /private/
func newSite(t *testing.T) (*httptest.Server, *hitCounter) {
	t.Helper()

	hits := newHitCounter()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.add(r.URL.Path)
		html := func(body string) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, "<html><body>%s</body></html>", body)
		}
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
		case "/":
			html(fmt.Sprintf(`<a href="%[1]s/a">a</a><a href="/b?ref=home">b</a><a href="b">rel</a><a href="/private/secret">p</a>`+
				`<a href="http://other.example/x">x</a><a href="mailto:me@example.com">m</a>`, server.URL))
		case "/a":
			html(fmt.Sprintf(`<a href="/c#top">c</a><a href="%s/">home</a>`, server.URL))
		case "/b":
			html(`<img src="/img.png">`)
		case "/c":
			html(`<a href="/d">d</a>`)
		case "/d":
			html(`leaf`)
		case "/img.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, hits
}

func newTestSpider(t *testing.T, dir string, opts ...SpiderOption) *Spider {
	t.Helper()

	client, err := transport.NewClient()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	archiver := NewArchiver(client, robots.NewCache(client), store.NewFS(dir))
	return NewSpider(archiver, opts...)
}

func attemptedPaths(t *testing.T, report *model.CrawlReport) []string {
	t.Helper()

	paths := make([]string, 0, len(report.Pages))
	for _, p := range report.Pages {
		u, err := url.Parse(p.URL)
		if err != nil {
			t.Fatalf("bad URL in report: %v", err)
		}
		paths = append(paths, u.Path)
	}
	sort.Strings(paths)
	return paths
}

// TestSpiderCrawl tests end-to-end mirroring of a local site.
func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("depth 0 fetches only the root", func(t *testing.T) {
		t.Parallel()

		server, hits := newSite(t)
		dir := t.TempDir()
		report, err := newTestSpider(t, dir, WithMaxDepth(0)).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		if got := attemptedPaths(t, report); !slices.Equal(got, []string{"/"}) {
			t.Errorf("attempted %q, want only root", got)
		}
		if hits.get("/a") != 0 {
			t.Error("depth 0 must not fetch linked pages")
		}
		host := report.Host
		if _, err := os.Stat(filepath.Join(dir, host, "__root__")); err != nil {
			t.Errorf("root artifact missing: %v", err)
		}
	})

	t.Run("depth 1 fetches root and its direct links", func(t *testing.T) {
		t.Parallel()

		server, hits := newSite(t)
		dir := t.TempDir()
		report, err := newTestSpider(t, dir, WithMaxDepth(1)).Crawl(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		want := []string{"/", "/a", "/b", "/private/secret"}
		if got := attemptedPaths(t, report); !slices.Equal(got, want) {
			t.Errorf("attempted %q, want %q", got, want)
		}
		if report.Count(model.OutcomeDisallowed) != 1 {
			t.Errorf("disallowed = %d, expected 1", report.Count(model.OutcomeDisallowed))
		}
		if hits.get("/private/secret") != 0 {
			t.Error("disallowed page was requested")
		}
		if hits.get("/c") != 0 || hits.get("/img.png") != 0 {
			t.Error("depth 2 resources must not be fetched")
		}
		if report.DepthReached != 1 {
			t.Errorf("DepthReached = %d, expected 1", report.DepthReached)
		}
	})

	t.Run("unlimited depth mirrors the whole site once", func(t *testing.T) {
		t.Parallel()

		server, hits := newSite(t)
		dir := t.TempDir()
		report, err := newTestSpider(t, dir).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		want := []string{"/", "/a", "/b", "/c", "/d", "/img.png", "/private/secret"}
		if got := attemptedPaths(t, report); !slices.Equal(got, want) {
			t.Errorf("attempted %q, want %q", got, want)
		}
		for _, p := range []string{"/", "/a", "/b", "/c", "/d", "/img.png", "/robots.txt"} {
			if n := hits.get(p); n != 1 {
				t.Errorf("%s requested %d times, expected 1", p, n)
			}
		}
		if report.DepthReached != 3 {
			t.Errorf("DepthReached = %d, expected 3", report.DepthReached)
		}

		host := report.Host
		for _, rel := range []string{"__root__", "a", "b", "c", "d", "img.png"} {
			if _, err := os.Stat(filepath.Join(dir, host, rel)); err != nil {
				t.Errorf("artifact %s missing: %v", rel, err)
			}
		}
		if _, err := os.Stat(filepath.Join(dir, "other.example")); !os.IsNotExist(err) {
			t.Error("off-site link must not be mirrored")
		}

		data, err := os.ReadFile(filepath.Join(dir, host, "__root__"))
		if err != nil {
			t.Fatalf("failed to read root artifact: %v", err)
		}
		root := string(data)
		for _, want := range []string{
			`href="/a"`,
			`href="/b?ref=home"`,
			`href="b"`,
			`href="http://other.example/x"`,
			`href="mailto:me@example.com"`,
		} {
			if !strings.Contains(root, want) {
				t.Errorf("root artifact missing %s:\n%s", want, root)
			}
		}
		if strings.Contains(root, server.URL) {
			t.Errorf("root artifact still has a same-host absolute link:\n%s", root)
		}
	})

	t.Run("parallel workers mirror the same pages", func(t *testing.T) {
		t.Parallel()

		server, _ := newSite(t)
		report, err := newTestSpider(t, t.TempDir(), WithWorkers(4)).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		want := []string{"/", "/a", "/b", "/c", "/d", "/img.png", "/private/secret"}
		if got := attemptedPaths(t, report); !slices.Equal(got, want) {
			t.Errorf("attempted %q, want %q", got, want)
		}
	})

	t.Run("page cap drops the rest of the level", func(t *testing.T) {
		t.Parallel()

		server, hits := newSite(t)
		report, err := newTestSpider(t, t.TempDir(), WithMaxPages(2)).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if n := len(report.Pages) - report.Count(model.OutcomeSkipped); n != 2 {
			t.Errorf("attempted %d pages, expected 2", n)
		}
		if report.Count(model.OutcomeSkipped) != 2 {
			t.Errorf("skipped = %d, expected 2", report.Count(model.OutcomeSkipped))
		}
		if hits.get("/a") != 1 || hits.get("/b") != 0 {
			t.Errorf("expected only the first URL of the sorted level, hits a=%d b=%d", hits.get("/a"), hits.get("/b"))
		}
		if hits.get("/c") != 0 {
			t.Error("crawl must stop after the cap")
		}
	})

	t.Run("ignore patterns prune the frontier", func(t *testing.T) {
		t.Parallel()

		server, hits := newSite(t)
		_, err := newTestSpider(t, t.TempDir(), WithIgnorePatterns([]string{"/a"})).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if hits.get("/a") != 0 || hits.get("/c") != 0 {
			t.Error("ignored page or its children were fetched")
		}
		if hits.get("/img.png") != 1 {
			t.Error("expected the rest of the site to be mirrored")
		}
	})

	t.Run("hooks see every page", func(t *testing.T) {
		t.Parallel()

		server, _ := newSite(t)
		var mu sync.Mutex
		var seen []string
		hook := func(_ context.Context, page model.PageResult) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, page.URL)
		}
		report, err := newTestSpider(t, t.TempDir(), WithPageHook(hook), WithWorkers(3)).Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		mu.Lock()
		defer mu.Unlock()
		if len(seen) != len(report.Pages) {
			t.Errorf("hook saw %d pages, report has %d", len(seen), len(report.Pages))
		}
	})
}

// TestSpiderCrawlErrors tests fatal conditions.
func TestSpiderCrawlErrors(t *testing.T) {
	t.Parallel()

	t.Run("relative root is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := newTestSpider(t, t.TempDir()).Crawl(context.Background(), "/no/host")
		if !errors.Is(err, ErrInvalidRootURL) {
			t.Errorf("expected ErrInvalidRootURL, got %v", err)
		}
	})

	t.Run("cancelled context stops the crawl", func(t *testing.T) {
		t.Parallel()

		server, hits := newSite(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := newTestSpider(t, t.TempDir()).Crawl(ctx, server.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if report == nil || report.Error == "" {
			t.Error("expected partial report carrying the error")
		}
		if hits.get("/") != 0 {
			t.Error("no page should be fetched after cancellation")
		}
	})
}

// graphArchiver serves a fixed link graph without any I/O.
type graphArchiver struct {
	mu    sync.Mutex
	links map[string][]string
	calls []string
	fail  map[string]error
}

func (g *graphArchiver) FetchAndStore(_ context.Context, u *url.URL) (*model.PageResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	raw := u.String()
	g.calls = append(g.calls, raw)
	if err := g.fail[raw]; err != nil {
		return nil, err
	}
	return &model.PageResult{URL: raw, Outcome: model.OutcomeStored, Links: g.links[raw]}, nil
}

// TestSpiderOrdering tests level-by-level processing with a fake archiver.
func TestSpiderOrdering(t *testing.T) {
	t.Parallel()

	t.Run("levels are processed in sorted order", func(t *testing.T) {
		t.Parallel()

		g := &graphArchiver{links: map[string][]string{
			"http://h/":  {"/z", "/y", "http://h/x?q=1", "/y#dup"},
			"http://h/z": {"/deep"},
			"http://h/y": {"/"},
		}}
		report, err := NewSpider(g).Crawl(context.Background(), "http://h")
		if err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}

		want := []string{"http://h/", "http://h/x", "http://h/y", "http://h/z", "http://h/deep"}
		if !slices.Equal(g.calls, want) {
			t.Errorf("calls = %q, want %q", g.calls, want)
		}
		depths := map[string]int{}
		for _, p := range report.Pages {
			depths[p.URL] = p.Depth
		}
		if depths["http://h/deep"] != 2 || depths["http://h/x"] != 1 {
			t.Errorf("unexpected depths %v", depths)
		}
	})

	t.Run("path-relative links resolve against the origin root", func(t *testing.T) {
		t.Parallel()

		g := &graphArchiver{links: map[string][]string{
			"http://h/":         {"/dir/page"},
			"http://h/dir/page": {"rel.html"},
		}}
		if _, err := NewSpider(g).Crawl(context.Background(), "http://h/"); err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		if !slices.Contains(g.calls, "http://h/rel.html") {
			t.Errorf("expected http://h/rel.html to be attempted, calls = %q", g.calls)
		}
	})

	t.Run("different scheme or port is off-site", func(t *testing.T) {
		t.Parallel()

		g := &graphArchiver{links: map[string][]string{
			"http://h/": {"https://h/secure", "http://h:8080/other", "//h/proto"},
		}}
		if _, err := NewSpider(g).Crawl(context.Background(), "http://h/"); err != nil {
			t.Fatalf("Crawl failed: %v", err)
		}
		want := []string{"http://h/", "http://h/proto"}
		if !slices.Equal(g.calls, want) {
			t.Errorf("calls = %q, want %q", g.calls, want)
		}
	})

	t.Run("fatal error stops the run with a partial report", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("disk full")
		g := &graphArchiver{
			links: map[string][]string{"http://h/": {"/a", "/b"}},
			fail:  map[string]error{"http://h/a": boom},
		}
		report, err := NewSpider(g).Crawl(context.Background(), "http://h/")
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped fatal error, got %v", err)
		}
		if report == nil || len(report.Pages) != 1 {
			t.Fatalf("expected partial report with the root page, got %+v", report)
		}
		if slices.Contains(g.calls, "http://h/b") {
			t.Error("no page should be attempted after a fatal error")
		}
	})
}
