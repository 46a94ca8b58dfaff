// Package crawl implements the Crawl Job Proxy: a thin, stateful local
// interface over a multi-page crawl run owned by an upstream vendor
// service. It is a proxy, not a crawler reimplementation — the actual
// multi-page traversal is delegated to a VendorCrawlClient, the same
// narrow-interface pattern pkg/fetch uses for the Vendor Fetcher.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
)

// Status is one of the states in the job state machine:
// scraping -> {completed, failed, cancelled}.
type Status string

const (
	StatusScraping  Status = "scraping"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status cannot transition further.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Config is the upstream request config built from a seed URL.
type Config struct {
	URL               string
	Limit             int // 1 <= limit <= 100000
	IncludePaths      []string
	ExcludePaths      []string
	MaxDiscoveryDepth int
}

// PageResult is one page's scrape outcome within a job, matching the same
// shape the Scrape Orchestrator returns.
type PageResult struct {
	URL      string
	Markdown string
	HTML     string
	Title    string
	Error    string
}

// sizeBytes approximates the on-wire size of one page result, used for
// the 10MB status page budget.
func (p PageResult) sizeBytes() int {
	return len(p.URL) + len(p.Markdown) + len(p.HTML) + len(p.Title) + len(p.Error)
}

// Snapshot is the upstream job state as last observed. The proxy never
// advances it itself; it only reflects what the vendor client reports.
type Snapshot struct {
	Status      Status
	Total       int
	Completed   int
	CreditsUsed int
	ExpiresAt   time.Time
	Data        []PageResult
	Error       string
}

// JobError reports a proxy-level failure: an unknown job id, or an
// upstream crawl call that failed. It is classified by the same
// taxonomy as the Vendor Fetcher (fetch.Kind).
type JobError struct {
	Kind      fetch.Kind
	Retryable bool
	Detail    string
}

func (e *JobError) Error() string {
	ve := &fetch.VendorError{Kind: e.Kind, Retryable: e.Retryable, Detail: e.Detail}
	return fmt.Sprintf("crawl job error: %s", ve.Error())
}

// unknownJobError builds the non-retryable JobError returned for an
// unrecognized job id (e.g. on cancel).
func unknownJobError(jobID string) *JobError {
	return &JobError{Kind: fetch.KindBadRequest, Retryable: false, Detail: fmt.Sprintf("unknown job id %q", jobID)}
}

// VendorCrawlClient is the narrow interface the Proxy drives. It mirrors
// fetch.Client's role for the Vendor Fetcher: the spec's actual upstream
// wire format is a non-goal, so implementations (including the local
// stand-in in vendor.go) sit behind this interface.
type VendorCrawlClient interface {
	Start(ctx context.Context, cfg Config) (jobID string, err error)
	Status(ctx context.Context, jobID string) (Snapshot, error)
	Cancel(ctx context.Context, jobID string) (Snapshot, error)
}
