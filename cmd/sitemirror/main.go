// Package main provides the entry point for the sitemirror CLI.
//
// sitemirror copies a single website to local storage. Starting from a root
// URL it fetches pages breadth first, rewrites same-site links so the copy
// works offline and honors the site's robots.txt.
//
// Usage:
//
//	sitemirror <url> [-d|--max-depth N]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
