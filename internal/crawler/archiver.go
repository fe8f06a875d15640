package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/sitemirror/internal/canon"
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/transport"
)

// Fetcher performs HTTP GET requests. *transport.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*transport.Response, error)
}

// Gatekeeper decides whether a URL may be fetched. *robots.Cache satisfies it.
type Gatekeeper interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, error)
}

// Storer persists artifacts. *store.FS satisfies it.
type Storer interface {
	Put(rel string, data []byte) (string, error)
}

// Archiver fetches one URL, rewrites it when it is HTML, and stores the result.
type Archiver struct {
	fetcher Fetcher
	gate    Gatekeeper
	storer  Storer
	logger  *slog.Logger
	now     func() time.Time
}

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithArchiverLogger sets the logger.
func WithArchiverLogger(logger *slog.Logger) ArchiverOption {
	return func(a *Archiver) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewArchiver creates an Archiver from its collaborators.
func NewArchiver(fetcher Fetcher, gate Gatekeeper, storer Storer, opts ...ArchiverOption) *Archiver {
	a := &Archiver{
		fetcher: fetcher,
		gate:    gate,
		storer:  storer,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchAndStore processes a canonical URL.
//
// A URL excluded by robots.txt yields OutcomeDisallowed without a request.
// A transport failure yields OutcomeFailed. Otherwise the body is stored,
// rewritten first when the Content-Type is exactly text/html, and the collected links are
// returned in the result unfiltered. Whatever status the server answered with,
// the body is stored as served.
//
// Errors are returned only for conditions that must stop the run: an
// unreadable robots.txt, a filesystem failure or a cancelled context.
func (a *Archiver) FetchAndStore(ctx context.Context, u *url.URL) (*model.PageResult, error) {
	raw := u.String()
	result := &model.PageResult{
		URL:       raw,
		FetchedAt: a.now(),
	}

	allowed, err := a.gate.IsAllowed(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !allowed {
		a.logger.Info("disallowed by robots.txt", "url", raw)
		result.Outcome = model.OutcomeDisallowed
		return result, nil
	}

	resp, err := a.fetcher.Fetch(ctx, raw)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.logger.Debug("fetch failed", "url", raw, "error", err)
		result.Outcome = model.OutcomeFailed
		result.Error = err.Error()
		return result, nil
	}

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")

	data := resp.Body
	if resp.IsHTML() {
		rewritten := Rewrite(resp.Text(), u.Hostname())
		data = []byte(rewritten.HTML)
		result.Links = rewritten.Links
	}

	rel := canon.StoragePath(u)
	if _, err := a.storer.Put(rel, data); err != nil {
		return nil, err
	}

	result.Outcome = model.OutcomeStored
	result.Path = rel
	result.ComputeHash(data)
	a.logger.Debug("stored", "url", raw, "path", rel, "status", resp.StatusCode, "bytes", result.Size)
	return result, nil
}
