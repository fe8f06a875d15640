package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// PageResult is the record of one attempted URL.
type PageResult struct {
	// URL is the canonical URL that was attempted.
	URL string `json:"url"`

	// Depth is the BFS level the URL was reached at. The root is depth 0.
	Depth int `json:"depth"`

	// Outcome tells whether the page was stored, disallowed, failed or skipped.
	Outcome Outcome `json:"outcome"`

	// StatusCode is the HTTP status of the response. Zero when nothing was fetched.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the raw Content-Type header of the response.
	ContentType string `json:"content_type,omitempty"`

	// Path is where the artifact was written, relative to the output directory.
	Path string `json:"path,omitempty"`

	// Size is the number of bytes written.
	Size int64 `json:"size"`

	// Hash is the SHA3-256 of the written bytes, hex encoded.
	// Used for change detection between runs.
	Hash string `json:"hash,omitempty"`

	// Links are the link values collected from the page, as they appear in the
	// stored document. They are neither filtered nor canonicalized.
	Links []string `json:"links,omitempty"`

	// FetchedAt is when the page was processed.
	FetchedAt time.Time `json:"fetched_at"`

	// Error describes why a page failed.
	Error string `json:"error,omitempty"`
}

// ComputeHash sets Hash and Size from the bytes that were written.
// Empty content leaves Hash empty.
func (p *PageResult) ComputeHash(data []byte) {
	p.Size = int64(len(data))
	if len(data) == 0 {
		p.Hash = ""
		return
	}
	sum := sha3.Sum256(data)
	p.Hash = hex.EncodeToString(sum[:])
}

// Stored reports whether the page was written to disk.
func (p *PageResult) Stored() bool {
	return p.Outcome == OutcomeStored
}
