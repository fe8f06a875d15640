package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// File.Validate. Callers match them with errors.Is.
var (
	// ErrNoTarget is returned when no root URL was given.
	ErrNoTarget = errors.New("no target specified: provide the URL of the site to mirror")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidMaxDepth is returned for depths below -1.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be -1 (unlimited) or greater")

	// ErrInvalidMaxPages is returned when the fetch cap is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the body size limit is negative.
	// Use 0 for the transport default.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidReportFormat is returned for an unsupported report format.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, json or markdown")

	// ErrInvalidPattern is returned when an ignore or follow pattern is not
	// valid glob syntax.
	ErrInvalidPattern = errors.New("invalid path pattern")
)
