// Package metrics exposes crawl counters as Prometheus metrics.
//
// A Recorder observes every page result of a run and can dump its registry
// in the text exposition format, suitable for the node exporter's textfile
// collector.
package metrics
