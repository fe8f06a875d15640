package model

import "time"

// CrawlReport is the result of one mirror run.
type CrawlReport struct {
	// RootURL is the canonical root the run started from.
	RootURL string `json:"root_url"`

	// Host is the hostname of the root, which is also the top directory
	// of the mirror on disk.
	Host string `json:"host"`

	// OutputDir is the directory the mirror was written under.
	OutputDir string `json:"output_dir"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// MaxDepth is the depth limit; -1 means unlimited.
	MaxDepth int `json:"max_depth"`

	// DepthReached is the deepest level at which a URL was attempted.
	DepthReached int `json:"depth_reached"`

	// Pages holds one result per attempted URL, in processing order.
	Pages []PageResult `json:"pages"`

	// Error is set when the run aborted.
	Error string `json:"error,omitempty"`
}

// NewCrawlReport creates an empty report for a run starting now.
func NewCrawlReport(rootURL, host string, maxDepth int) *CrawlReport {
	return &CrawlReport{
		RootURL:   rootURL,
		Host:      host,
		StartedAt: time.Now(),
		MaxDepth:  maxDepth,
		Pages:     make([]PageResult, 0),
	}
}

// Add appends a page result and tracks the deepest level attempted.
func (r *CrawlReport) Add(page PageResult) {
	r.Pages = append(r.Pages, page)
	if page.Outcome != OutcomeSkipped && page.Depth > r.DepthReached {
		r.DepthReached = page.Depth
	}
}

// Count returns the number of pages with the given outcome.
func (r *CrawlReport) Count(o Outcome) int {
	n := 0
	for i := range r.Pages {
		if r.Pages[i].Outcome == o {
			n++
		}
	}
	return n
}

// Counts returns the number of pages per outcome.
func (r *CrawlReport) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, len(Outcomes))
	for _, o := range Outcomes {
		counts[o] = 0
	}
	for i := range r.Pages {
		counts[r.Pages[i].Outcome]++
	}
	return counts
}

// TotalBytes returns the number of bytes written during the run.
func (r *CrawlReport) TotalBytes() int64 {
	var total int64
	for i := range r.Pages {
		total += r.Pages[i].Size
	}
	return total
}

// Duration returns how long the run took. Zero until FinishedAt is set.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
