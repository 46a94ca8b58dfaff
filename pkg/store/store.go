// Package store implements the three-tier content-addressed Resource Store:
// raw fetched content, cleaned Markdown, and LLM-extracted text, each keyed
// by a fingerprint derived from the source URL, the extraction query, and
// any browser action list. It uses a flat-file JSON index with per-key
// locking, generalized to a content cache rather than a model registry.
package store

import (
	"context"
	"errors"
	"time"
)

// Tier identifies which projection of a fingerprint an entry belongs to.
type Tier string

const (
	TierRaw       Tier = "raw"
	TierCleaned   Tier = "cleaned"
	TierExtracted Tier = "extracted"
)

// ErrNotFound is returned by Read when no entry exists for a URI.
var ErrNotFound = errors.New("store: resource not found")

// StorageError reports that every requested tier failed to persist.
// Per spec, it is only returned when ALL tiers fail; partial failures are
// reported via WriteMultiResult.Errors instead.
type StorageError struct {
	TierErrors map[Tier]error
}

func (e *StorageError) Error() string {
	msg := "store: all tiers failed to persist"
	for tier, err := range e.TierErrors {
		msg += "; " + string(tier) + ": " + err.Error()
	}
	return msg
}

// ResourceEntry is an immutable record in the Resource Store.
type ResourceEntry struct {
	URI         string         `json:"uri"`
	Tier        Tier           `json:"tier"`
	Fingerprint string         `json:"fingerprint"`
	CreatedAt   time.Time      `json:"createdAt"`
	SourceURL   string         `json:"url"`
	MimeType    string         `json:"mimeType"`
	Payload     []byte         `json:"payload"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	// Links holds the sibling-tier URIs for the same fingerprint, if they
	// exist. This is a small adjacency record, not a live pointer graph —
	// the store remains the single source of truth.
	Links ResourceLinks `json:"links,omitempty"`
}

// ResourceLinks is the adjacency record pointing at sibling tier entries.
type ResourceLinks struct {
	RawURI       string `json:"rawUri,omitempty"`
	CleanedURI   string `json:"cleanedUri,omitempty"`
	ExtractedURI string `json:"extractedUri,omitempty"`
}

// Text returns the entry payload decoded as UTF-8 text.
func (e ResourceEntry) Text() string { return string(e.Payload) }

// WriteMultiInput describes a single fingerprint write spanning up to
// three tiers. At least one of Raw/Cleaned/Extracted must be set.
type WriteMultiInput struct {
	URL          string
	ExtractQuery string
	Actions      []byte // canonical JSON of the action list, or nil

	Raw       []byte
	Cleaned   []byte
	Extracted []byte

	MimeType string
	Metadata map[string]any
}

// WriteMultiResult reports the URIs of the tiers that were written.
// A tier's URI is empty if that tier was not supplied, or if writing it
// failed while at least one other tier succeeded.
type WriteMultiResult struct {
	RawURI       string
	CleanedURI   string
	ExtractedURI string
	Errors       map[Tier]error
}

// Store is the content-addressed Resource Store contract.
type Store interface {
	// WriteMulti writes all supplied tiers under one fingerprint,
	// populating cross-tier links. It fails with *StorageError only if
	// every supplied tier failed to persist.
	WriteMulti(ctx context.Context, in WriteMultiInput) (WriteMultiResult, error)

	// FindByURLAndExtract returns entries across all tiers for the
	// fingerprint derived from (url, extractQuery), newest first.
	FindByURLAndExtract(ctx context.Context, url, extractQuery string) ([]ResourceEntry, error)

	// Read looks up a single entry by its URI.
	Read(ctx context.Context, uri string) (ResourceEntry, error)

	// List returns entries whose URI has the given prefix, paginated by
	// an opaque cursor.
	List(ctx context.Context, prefix string, cursor string, limit int) (entries []ResourceEntry, nextCursor string, err error)
}
