package transport

import "errors"

var (
	// ErrTransport is returned when no response could be obtained for a request.
	// It covers DNS failures, refused connections, timeouts and body read errors.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrBodyTooLarge is returned, wrapped in ErrTransport, when a response
	// body exceeds the client's size limit. Nothing of the body is returned.
	ErrBodyTooLarge = errors.New("response body exceeds limit")
)
