// Package transport performs the HTTP requests of a mirror run.
//
// A Client issues plain GET requests and hands back the status, headers and
// body of whatever the server answered. Non-2xx answers are not errors: the
// caller decides what a 404 page means. Only failures to obtain a response at
// all (DNS, refused connections, timeouts, truncated bodies) are reported, and
// they always wrap ErrTransport.
//
// The client can route through a SOCKS5 proxy, inject per-site headers and a
// cookie into every request, and keeps a public-suffix aware cookie jar so
// cookies set by the mirrored site survive across pages.
package transport
