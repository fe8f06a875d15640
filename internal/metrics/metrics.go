package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/sitemirror/internal/model"
)

const namespace = "sitemirror"

// Recorder holds the Prometheus metrics for one mirror run.
type Recorder struct {
	registry *prometheus.Registry

	mu       sync.Mutex
	maxDepth int

	PagesTotal   *prometheus.CounterVec
	BytesWritten prometheus.Counter
	DepthReached prometheus.Gauge
	LinksFound   prometheus.Counter
}

// NewRecorder creates a Recorder backed by its own registry. host is
// attached to every metric as a constant label.
func NewRecorder(host string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"host": host}

	r := &Recorder{
		registry: reg,
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "pages_total",
			Help:        "The total number of URLs attempted, by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		BytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "bytes_written_total",
			Help:        "The total number of bytes written to the mirror",
			ConstLabels: labels,
		}),
		DepthReached: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "depth_reached",
			Help:        "The deepest level at which a URL was attempted",
			ConstLabels: labels,
		}),
		LinksFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "links_found_total",
			Help:        "The total number of link values collected from stored HTML",
			ConstLabels: labels,
		}),
	}
	// Export every outcome, including those that never occur.
	for _, o := range model.Outcomes {
		r.PagesTotal.WithLabelValues(o.String())
	}
	return r
}

// Observe records one page result. Its signature matches the crawler's page
// hook.
func (r *Recorder) Observe(_ context.Context, page model.PageResult) {
	r.PagesTotal.WithLabelValues(page.Outcome.String()).Inc()
	if page.Outcome == model.OutcomeSkipped {
		return
	}
	r.BytesWritten.Add(float64(page.Size))
	r.LinksFound.Add(float64(len(page.Links)))
	r.setDepth(page.Depth)
}

// setDepth raises the depth gauge; it never lowers it.
func (r *Recorder) setDepth(depth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if depth > r.maxDepth {
		r.maxDepth = depth
		r.DepthReached.Set(float64(depth))
	}
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile atomically writes the current metrics to filename in the
// text exposition format.
func (r *Recorder) WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", filename, err)
	}
	return nil
}
