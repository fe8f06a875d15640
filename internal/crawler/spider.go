package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/sitemirror/internal/canon"
	"github.com/nao1215/sitemirror/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidRootURL is returned when the root is not an absolute http(s) URL.
var ErrInvalidRootURL = errors.New("invalid root URL")

// Unlimited disables the depth limit.
const Unlimited = -1

// PageArchiver processes a single URL. *Archiver satisfies it.
type PageArchiver interface {
	FetchAndStore(ctx context.Context, u *url.URL) (*model.PageResult, error)
}

// PageHook observes every page result as soon as it is known.
// Hooks are never called concurrently.
type PageHook func(ctx context.Context, page model.PageResult)

// Spider mirrors one site breadth-first.
//
// URLs are processed level by level: every URL of depth d is attempted before
// any URL of depth d+1, and links found at depth d are only expanded once the
// whole level is done. Only links on the root's origin are followed.
type Spider struct {
	archiver PageArchiver

	// maxDepth is the deepest level that is expanded into. Unlimited (-1) means
	// the crawl ends only when no new URLs are found.
	maxDepth int

	// maxPages caps the number of URLs attempted. 0 means no cap.
	maxPages int

	// workers is how many URLs of one level are processed at once.
	workers int

	filter pathFilter
	hooks  []PageHook
	hookMu sync.Mutex
	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the root page, 1 = root plus the pages it links to, and so on.
// Negative values mean unlimited.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		if depth < 0 {
			depth = Unlimited
		}
		s.maxDepth = depth
	}
}

// WithMaxPages caps the number of URLs attempted. 0 disables the cap.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages >= 0 {
			s.maxPages = maxPages
		}
	}
}

// WithWorkers sets how many URLs of the same level are processed concurrently.
func WithWorkers(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithIgnorePatterns sets URL path patterns that are never enqueued.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.filter.ignore = patterns
	}
}

// WithFollowPatterns restricts enqueued URLs to paths matching at least one
// pattern. Empty means every path not ignored is followed.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.filter.follow = patterns
	}
}

// WithPageHook registers a hook called after every page.
func WithPageHook(hook PageHook) SpiderOption {
	return func(s *Spider) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

// WithSpiderLogger sets the logger.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider. By default depth is unlimited, there is no
// page cap and URLs are processed one at a time.
func NewSpider(archiver PageArchiver, opts ...SpiderOption) *Spider {
	s := &Spider{
		archiver: archiver,
		maxDepth: Unlimited,
		workers:  1,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl mirrors the site rooted at rawRoot.
//
// Pages that are disallowed or fail to fetch are recorded in the report and do
// not stop the run. A fatal error (unreadable robots.txt, filesystem failure,
// cancellation) stops the run; the report built so far is returned with it.
func (s *Spider) Crawl(ctx context.Context, rawRoot string) (*model.CrawlReport, error) {
	root, err := canon.Absolute(rawRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidRootURL, rawRoot, err)
	}

	report := model.NewCrawlReport(root.String(), root.Hostname(), s.maxDepth)
	visited := make(map[string]struct{})
	frontier := map[string]struct{}{root.String(): {}}
	attempted := 0

	for depth := 0; len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return s.abort(report, err)
		}

		batch := make([]string, 0, len(frontier))
		for u := range frontier {
			batch = append(batch, u)
		}
		slices.Sort(batch)
		frontier = make(map[string]struct{})

		capped := false
		if s.maxPages > 0 && attempted+len(batch) > s.maxPages {
			keep := max(s.maxPages-attempted, 0)
			s.logger.Info("page cap reached", "max_pages", s.maxPages, "dropped", len(batch)-keep)
			for _, u := range batch[keep:] {
				skipped := model.PageResult{URL: u, Depth: depth, Outcome: model.OutcomeSkipped, FetchedAt: time.Now()}
				report.Add(skipped)
				s.notify(ctx, skipped)
			}
			batch = batch[:keep]
			capped = true
		}

		s.logger.Info("crawling level", "depth", depth, "urls", len(batch))
		for _, u := range batch {
			visited[u] = struct{}{}
		}
		attempted += len(batch)

		results, err := s.processBatch(ctx, batch, depth)
		for _, r := range results {
			if r != nil {
				report.Add(*r)
			}
		}
		if err != nil {
			return s.abort(report, err)
		}

		if capped {
			break
		}
		if s.maxDepth >= 0 && depth == s.maxDepth {
			break
		}

		for _, r := range results {
			for _, link := range r.Links {
				next, ok := s.admit(link, root, visited)
				if ok {
					frontier[next] = struct{}{}
				}
			}
		}
	}

	report.FinishedAt = time.Now()
	return report, nil
}

// processBatch attempts every URL of one level and returns the results in
// batch order. It returns only after all started work has finished.
func (s *Spider) processBatch(ctx context.Context, batch []string, depth int) ([]*model.PageResult, error) {
	results := make([]*model.PageResult, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, raw := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u, err := url.Parse(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", raw, err)
			}
			result, err := s.archiver.FetchAndStore(gctx, u)
			if err != nil {
				return fmt.Errorf("%s: %w", raw, err)
			}
			result.Depth = depth
			results[i] = result
			s.notify(ctx, *result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return results, ctxErr
		}
		return results, err
	}
	return results, nil
}

// admit canonicalizes a collected link against the root origin and reports
// whether it belongs in the next frontier.
func (s *Spider) admit(link string, root *url.URL, visited map[string]struct{}) (string, bool) {
	u, err := canon.Canonicalize(link, root)
	if err != nil {
		return "", false
	}
	if !canon.SameOrigin(u, root) {
		return "", false
	}
	key := u.String()
	if _, seen := visited[key]; seen {
		return "", false
	}
	if !s.filter.allows(u.Path) {
		return "", false
	}
	return key, true
}

func (s *Spider) notify(ctx context.Context, page model.PageResult) {
	if len(s.hooks) == 0 {
		return
	}
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	for _, hook := range s.hooks {
		hook(ctx, page)
	}
}

func (s *Spider) abort(report *model.CrawlReport, err error) (*model.CrawlReport, error) {
	report.FinishedAt = time.Now()
	report.Error = err.Error()
	return report, err
}
