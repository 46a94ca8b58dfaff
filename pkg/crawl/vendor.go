package crawl

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-fetch/pulse-fetch/internal/logger"
	"github.com/pulse-fetch/pulse-fetch/pkg/clean"
	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
)

// pageBudgetBytes bounds one status() page to a 10 MB payload.
const pageBudgetBytes = 10 * 1024 * 1024

// maxConcurrency bounds simultaneous in-flight fetches per job.
const maxConcurrency = 3

// jobState is the mutable record for one running or finished job. Reads
// and writes go through LocalCrawlClient's per-job lock, a single-mutex-
// guarded-map idiom shared with pkg/store's per-fingerprint locks.
type jobState struct {
	mu       sync.Mutex
	snapshot Snapshot
	cancel   context.CancelFunc
}

// LocalCrawlClient is a local, in-process stand-in for an upstream vendor
// crawl API (an external collaborator whose real wire format is out of
// scope here). It runs a bounded-depth, bounded-concurrency BFS over
// same-domain links, trimmed to the Crawl Job Proxy's contract: per-page
// markdown/html results, no schema extraction.
type LocalCrawlClient struct {
	Fetcher fetch.Client
	Cleaner clean.Cleaner

	mu   sync.Mutex
	jobs map[string]*jobState
}

// NewLocalCrawlClient builds a stand-in client around the given fetcher
// and cleaner.
func NewLocalCrawlClient(fetcher fetch.Client, cleaner clean.Cleaner) *LocalCrawlClient {
	return &LocalCrawlClient{Fetcher: fetcher, Cleaner: cleaner, jobs: map[string]*jobState{}}
}

func (c *LocalCrawlClient) Start(ctx context.Context, cfg Config) (string, error) {
	id := uuid.NewString()
	jobCtx, cancel := context.WithCancel(context.Background())

	state := &jobState{
		snapshot: Snapshot{Status: StatusScraping, Total: cfg.Limit, ExpiresAt: time.Now().Add(24 * time.Hour)},
		cancel:   cancel,
	}

	c.mu.Lock()
	c.jobs[id] = state
	c.mu.Unlock()

	go c.run(jobCtx, id, state, cfg)

	return id, nil
}

func (c *LocalCrawlClient) Status(ctx context.Context, jobID string) (Snapshot, error) {
	state, ok := c.jobLookup(jobID)
	if !ok {
		return Snapshot{}, unknownJobError(jobID)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.snapshot, nil
}

func (c *LocalCrawlClient) Cancel(ctx context.Context, jobID string) (Snapshot, error) {
	state, ok := c.jobLookup(jobID)
	if !ok {
		return Snapshot{}, unknownJobError(jobID)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.snapshot.Status.Terminal() {
		return state.snapshot, nil
	}
	state.cancel()
	state.snapshot.Status = StatusCancelled
	return state.snapshot, nil
}

func (c *LocalCrawlClient) jobLookup(jobID string) (*jobState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.jobs[jobID]
	return state, ok
}

// run performs the BFS crawl for one job, recording results into state as
// they complete: a queue-and-semaphore shape with a single same-domain
// include/exclude filter (no pagination selector, no link-pattern regex)
// since the Crawl Job Proxy contract has no equivalent options.
func (c *LocalCrawlClient) run(ctx context.Context, jobID string, state *jobState, cfg Config) {
	log := logger.Component("crawl.local")

	type queued struct {
		url   string
		depth int
	}

	seedHost := hostOf(cfg.URL)
	queue := []queued{{url: cfg.URL, depth: 0}}
	visited := map[string]bool{cfg.URL: true}

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	var queueMu sync.Mutex

	// queue and visited are touched by both this loop and the worker
	// goroutines it launches, so every access goes through queueMu.
	dequeue := func() (queued, bool) {
		queueMu.Lock()
		defer queueMu.Unlock()
		if len(queue) == 0 {
			return queued{}, false
		}
		item := queue[0]
		queue = queue[1:]
		return item, true
	}

	processed := 0
	for processed < cfg.Limit {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}

		item, ok := dequeue()
		if !ok {
			wg.Wait()
			queueMu.Lock()
			empty := len(queue) == 0
			queueMu.Unlock()
			if empty {
				break
			}
			continue
		}
		processed++

		sem <- struct{}{}
		wg.Add(1)
		go func(u string, depth int) {
			defer wg.Done()
			defer func() { <-sem }()

			page, links := c.fetchOne(ctx, u)

			state.mu.Lock()
			state.snapshot.Data = append(state.snapshot.Data, page)
			state.snapshot.Completed++
			state.mu.Unlock()

			if depth >= cfg.MaxDiscoveryDepth {
				return
			}
			queueMu.Lock()
			for _, link := range links {
				if !allowed(link, seedHost, cfg) {
					continue
				}
				if !visited[link] {
					visited[link] = true
					queue = append(queue, queued{url: link, depth: depth + 1})
				}
			}
			queueMu.Unlock()
		}(item.url, item.depth)
	}
	wg.Wait()

	state.mu.Lock()
	if state.snapshot.Status == StatusScraping {
		state.snapshot.Status = StatusCompleted
		state.snapshot.Total = state.snapshot.Completed
	}
	state.mu.Unlock()
	log.Debug("crawl job finished", "job_id", jobID, "pages", state.snapshot.Completed)
}

// fetchOne fetches and cleans a single page, returning its PageResult and
// any same-page links discovered for further traversal.
func (c *LocalCrawlClient) fetchOne(ctx context.Context, pageURL string) (PageResult, []string) {
	result, err := c.Fetcher.Fetch(ctx, pageURL, fetch.DefaultOptions())
	if err != nil || !result.Success {
		msg := "fetch failed"
		if err != nil {
			msg = err.Error()
		} else if result.StatusCode != 0 {
			msg = result.Classify().UpstreamMessage("Crawl")
		} else if result.ErrorMessage != "" {
			msg = result.ErrorMessage
		}
		return PageResult{URL: pageURL, Error: msg}, nil
	}

	markdown := result.RawContent
	if c.Cleaner != nil {
		if cleaned, cerr := c.Cleaner.Clean(result.RawContent, clean.Options{OnlyMainContent: true}); cerr == nil {
			markdown = cleaned
		}
	}

	links := extractLinks(result.RawContent, pageURL)
	return PageResult{URL: pageURL, Markdown: markdown, HTML: result.RawContent}, links
}

// allowed applies the same-domain and include/exclude path filters from
// the job's config.
func allowed(link, seedHost string, cfg Config) bool {
	if hostOf(link) != seedHost {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	for _, ex := range cfg.ExcludePaths {
		if strings.HasPrefix(u.Path, ex) {
			return false
		}
	}
	if len(cfg.IncludePaths) > 0 {
		for _, inc := range cfg.IncludePaths {
			if strings.HasPrefix(u.Path, inc) {
				return true
			}
		}
		return false
	}
	return true
}

// paginateSnapshot returns the page of Data starting after cursor that
// fits within pageBudgetBytes, plus the next cursor if more remains.
func paginateSnapshot(data []PageResult, cursor string) ([]PageResult, *string) {
	start := 0
	if cursor != "" {
		if n, err := strconv.Atoi(cursor); err == nil {
			start = n
		}
	}
	if start >= len(data) {
		return nil, nil
	}

	var page []PageResult
	size := 0
	i := start
	for ; i < len(data); i++ {
		s := data[i].sizeBytes()
		if size > 0 && size+s > pageBudgetBytes {
			break
		}
		page = append(page, data[i])
		size += s
	}
	if i >= len(data) {
		return page, nil
	}
	next := strconv.Itoa(i)
	return page, &next
}
