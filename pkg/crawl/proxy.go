package crawl

import (
	"context"
	"time"

	"github.com/pulse-fetch/pulse-fetch/internal/validate"
	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
)

// StatusPage is one paginated window over a job's Snapshot, bounded by
// the 10 MB page budget.
type StatusPage struct {
	Status      Status
	Total       int
	Completed   int
	CreditsUsed int
	ExpiresAt   time.Time
	Data        []PageResult
	NextCursor  *string
	Error       string
}

// Proxy is the Crawl Job Proxy itself: it validates inbound requests,
// builds the upstream config via BuildConfig, and forwards everything
// else to a VendorCrawlClient. It holds no crawl state of its own —
// job state is owned by the upstream service; the local process holds
// only a weak reference keyed by job id.
type Proxy struct {
	Vendor VendorCrawlClient
}

// NewProxy builds a Proxy over the given vendor client.
func NewProxy(vendor VendorCrawlClient) *Proxy {
	return &Proxy{Vendor: vendor}
}

// startInput carries Start's arguments through struct-tag validation;
// http_url rejects non-http(s) schemes the same way the hand-written
// scheme check used to.
type startInput struct {
	SeedURL string `validate:"required,http_url"`
	Limit   int    `validate:"required,min=1,max=100000"`
}

// Start validates the seed URL and limit, builds the per-host config, and
// asks the vendor client to begin the job. It returns the job id and a
// synthetic jobUrl identifying the job as a local resource.
func (p *Proxy) Start(ctx context.Context, seedURL string, limit int) (jobID, jobURL string, err error) {
	if verr := validate.Struct(startInput{SeedURL: seedURL, Limit: limit}); verr != nil {
		return "", "", &JobError{Kind: fetch.KindBadRequest, Retryable: false, Detail: verr.Error()}
	}

	cfg := BuildConfig(seedURL, limit)
	jobID, err = p.Vendor.Start(ctx, cfg)
	if err != nil {
		return "", "", err
	}
	return jobID, "crawl-job://" + jobID, nil
}

// Status fetches the job's current snapshot and returns the page of
// results starting after cursor (empty cursor starts from the beginning).
func (p *Proxy) Status(ctx context.Context, jobID, cursor string) (StatusPage, error) {
	snap, err := p.Vendor.Status(ctx, jobID)
	if err != nil {
		return StatusPage{}, err
	}

	page, next := paginateSnapshot(snap.Data, cursor)
	return StatusPage{
		Status:      snap.Status,
		Total:       snap.Total,
		Completed:   snap.Completed,
		CreditsUsed: snap.CreditsUsed,
		ExpiresAt:   snap.ExpiresAt,
		Data:        page,
		NextCursor:  next,
		Error:       snap.Error,
	}, nil
}

// Cancel asks the vendor client to cancel the job. Cancelling an
// already-terminal job is idempotent: the vendor client returns the
// existing snapshot unchanged rather than erroring.
func (p *Proxy) Cancel(ctx context.Context, jobID string) (Snapshot, error) {
	return p.Vendor.Cancel(ctx, jobID)
}
