// Package robots decides whether a URL may be fetched according to the
// robots.txt manifest of its origin.
//
// Manifests are fetched lazily, once per origin, and kept in a Cache for the
// lifetime of a mirror run. A manifest that cannot be fetched, or that answers
// with a non-2xx status, is treated as allowing everything. A manifest that is
// served successfully but cannot be parsed aborts the run with
// ErrUnreadableManifest: silently ignoring it could mean crawling paths the
// site owner excluded.
package robots
