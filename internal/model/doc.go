// Package model defines the data produced by a mirror run.
//
// A PageResult records what happened to one URL: whether it was stored,
// excluded by robots.txt, or could not be fetched, together with where its
// bytes were written. A CrawlReport collects the results of a whole run and
// is what the report writers, the journal and the metrics consume.
package model
