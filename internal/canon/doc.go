// Package canon turns raw link strings into canonical URLs.
//
// A canonical URL is the identity used for crawl deduplication: scheme,
// host and path only. Path parameters, the query string and the fragment
// are removed, scheme and host are lower-cased, and an empty path becomes
// "/". Links without a host are completed from a default origin, which is
// normally the crawl root.
//
// The package also derives the on-disk location of a mirrored page from
// its canonical URL.
package canon
