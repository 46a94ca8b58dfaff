package crawl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
)

func TestStatus_Terminal(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusScraping, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}
	for _, c := range cases {
		if got := c.status.Terminal(); got != c.want {
			t.Errorf("Status(%q).Terminal() = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestPaginateSnapshot_SplitsOnByteBudget(t *testing.T) {
	big := make([]byte, 0)
	data := []PageResult{
		{URL: "https://a.example/1", Markdown: string(append(big, make([]byte, pageBudgetBytes-1)...))},
		{URL: "https://a.example/2", Markdown: "second page"},
		{URL: "https://a.example/3", Markdown: "third page"},
	}

	page1, next1 := paginateSnapshot(data, "")
	if len(page1) != 1 {
		t.Fatalf("expected first page to hold exactly the oversized entry, got %d entries", len(page1))
	}
	if next1 == nil {
		t.Fatal("expected a cursor for remaining pages")
	}

	page2, next2 := paginateSnapshot(data, *next1)
	if len(page2) != 2 {
		t.Fatalf("expected remaining two small entries on page two, got %d", len(page2))
	}
	if next2 != nil {
		t.Errorf("expected no further cursor, got %v", *next2)
	}
}

func TestPaginateSnapshot_CursorPastEndReturnsNil(t *testing.T) {
	data := []PageResult{{URL: "https://a.example/1"}}
	page, next := paginateSnapshot(data, "5")
	if page != nil || next != nil {
		t.Errorf("expected nil page and cursor past end, got %v, %v", page, next)
	}
}

// fakeVendorClient lets Proxy tests exercise validation and pagination
// without running the BFS engine itself.
type fakeVendorClient struct {
	startErr error
	jobID    string
	snapshot Snapshot
}

func (f *fakeVendorClient) Start(ctx context.Context, cfg Config) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.jobID, nil
}

func (f *fakeVendorClient) Status(ctx context.Context, jobID string) (Snapshot, error) {
	if jobID != f.jobID {
		return Snapshot{}, unknownJobError(jobID)
	}
	return f.snapshot, nil
}

func (f *fakeVendorClient) Cancel(ctx context.Context, jobID string) (Snapshot, error) {
	if jobID != f.jobID {
		return Snapshot{}, unknownJobError(jobID)
	}
	if f.snapshot.Status.Terminal() {
		return f.snapshot, nil
	}
	f.snapshot.Status = StatusCancelled
	return f.snapshot, nil
}

func TestProxy_StartRejectsNonHTTPScheme(t *testing.T) {
	p := NewProxy(&fakeVendorClient{jobID: "job-1"})
	_, _, err := p.Start(context.Background(), "ftp://example.com", 10)
	var jobErr *JobError
	if !errors.As(err, &jobErr) || jobErr.Retryable {
		t.Fatalf("expected non-retryable JobError for bad scheme, got %v", err)
	}
}

func TestProxy_StartRejectsLimitOutOfRange(t *testing.T) {
	p := NewProxy(&fakeVendorClient{jobID: "job-1"})
	if _, _, err := p.Start(context.Background(), "https://example.com", 0); err == nil {
		t.Error("expected error for limit below range")
	}
	if _, _, err := p.Start(context.Background(), "https://example.com", 100001); err == nil {
		t.Error("expected error for limit above range")
	}
}

func TestProxy_StartReturnsJobIDAndURL(t *testing.T) {
	p := NewProxy(&fakeVendorClient{jobID: "job-42"})
	id, jobURL, err := p.Start(context.Background(), "https://example.com", 5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id != "job-42" || jobURL == "" {
		t.Errorf("expected job id and non-empty jobUrl, got %q, %q", id, jobURL)
	}
}

func TestProxy_CancelUnknownJobReturnsNonRetryable(t *testing.T) {
	p := NewProxy(&fakeVendorClient{jobID: "job-1"})
	_, err := p.Cancel(context.Background(), "unknown")
	var jobErr *JobError
	if !errors.As(err, &jobErr) || jobErr.Retryable {
		t.Fatalf("expected non-retryable JobError for unknown job, got %v", err)
	}
}

func TestProxy_CancelIsIdempotentOnTerminalJob(t *testing.T) {
	vendor := &fakeVendorClient{jobID: "job-1", snapshot: Snapshot{Status: StatusCompleted, Completed: 3, Total: 3}}
	p := NewProxy(vendor)

	first, err := p.Cancel(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	second, err := p.Cancel(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if first.Status != StatusCompleted || second.Status != StatusCompleted {
		t.Errorf("expected cancel on a terminal job to leave its status unchanged, got %v then %v", first.Status, second.Status)
	}
}

func TestProxy_StatusPaginatesVendorSnapshot(t *testing.T) {
	vendor := &fakeVendorClient{jobID: "job-1", snapshot: Snapshot{
		Status: StatusCompleted,
		Data: []PageResult{
			{URL: "https://a.example/1", Markdown: "one"},
			{URL: "https://a.example/2", Markdown: "two"},
		},
	}}
	p := NewProxy(vendor)

	page, err := p.Status(context.Background(), "job-1", "")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(page.Data) != 2 || page.NextCursor != nil {
		t.Errorf("expected both entries on a single page with no cursor, got %+v", page)
	}
}

// fakeFetchClient is a minimal fetch.Client stand-in for the BFS engine
// test below.
type fakeFetchClient struct {
	result fetch.Result
}

func (f *fakeFetchClient) Fetch(ctx context.Context, url string, opts fetch.Options) (fetch.Result, error) {
	return f.result, nil
}
func (f *fakeFetchClient) Tag() fetch.Tag { return fetch.Native }
func (f *fakeFetchClient) Close() error   { return nil }

func TestLocalCrawlClient_RunCompletesWithinLimit(t *testing.T) {
	fetcher := &fakeFetchClient{result: fetch.Result{
		Success:     true,
		RawContent:  `<html><body><a href="/other">next</a></body></html>`,
		ContentType: "text/html",
	}}
	client := NewLocalCrawlClient(fetcher, nil)

	jobID, err := client.Start(context.Background(), Config{URL: "https://example.com", Limit: 1, MaxDiscoveryDepth: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var snap Snapshot
	for time.Now().Before(deadline) {
		snap, err = client.Status(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if snap.Status.Terminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if snap.Status != StatusCompleted {
		t.Fatalf("expected job to complete, got status %q", snap.Status)
	}
	if snap.Completed == 0 || snap.Completed > 1 {
		t.Errorf("expected exactly the limited page count completed, got %d", snap.Completed)
	}
}

func TestLocalCrawlClient_PageFailureSurfacesClassifiedError(t *testing.T) {
	fetcher := &fakeFetchClient{result: fetch.Result{
		Success:      false,
		StatusCode:   429,
		ErrorBody:    `{"error":"Too many requests"}`,
		RetryAfterMs: 60000,
	}}
	client := NewLocalCrawlClient(fetcher, nil)

	jobID, err := client.Start(context.Background(), Config{URL: "https://example.com", Limit: 1, MaxDiscoveryDepth: 1})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var snap Snapshot
	for time.Now().Before(deadline) {
		snap, err = client.Status(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if snap.Status.Terminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if len(snap.Data) != 1 {
		t.Fatalf("expected one page result, got %v", snap.Data)
	}
	for _, want := range []string{"Crawl API Error (429)", "Rate limit exceeded", "Details: Too many requests", "retry after 60000ms"} {
		if !strings.Contains(snap.Data[0].Error, want) {
			t.Errorf("expected page error to contain %q, got %q", want, snap.Data[0].Error)
		}
	}
}

func TestLocalCrawlClient_StatusUnknownJobErrors(t *testing.T) {
	client := NewLocalCrawlClient(&fakeFetchClient{}, nil)
	if _, err := client.Status(context.Background(), "nope"); err == nil {
		t.Error("expected an error for an unknown job id")
	}
}

func TestExtractLinks_ResolvesRelativeAndSkipsFragments(t *testing.T) {
	html := `<html><body>
		<a href="/a">a</a>
		<a href="#section">frag</a>
		<a href="javascript:void(0)">js</a>
		<a href="https://other.example/b">b</a>
	</body></html>`

	links := extractLinks(html, "https://example.com/page")
	want := map[string]bool{
		"https://example.com/a":   true,
		"https://other.example/b": true,
	}
	if len(links) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(links), links)
	}
	for _, l := range links {
		if !want[l] {
			t.Errorf("unexpected link %q", l)
		}
	}
}
