package discover

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
	"github.com/pulse-fetch/pulse-fetch/pkg/scrape"
	"github.com/pulse-fetch/pulse-fetch/pkg/store"
)

// scriptedFetchClient returns canned results keyed by URL, so sitemap.xml
// and the root page can be answered differently within one test.
type scriptedFetchClient struct {
	byURL map[string]fetch.Result
}

func (s *scriptedFetchClient) Fetch(ctx context.Context, url string, opts fetch.Options) (fetch.Result, error) {
	if r, ok := s.byURL[url]; ok {
		return r, nil
	}
	return fetch.Result{Success: false, ErrorMessage: "not found"}, nil
}
func (s *scriptedFetchClient) Tag() fetch.Tag { return fetch.Native }
func (s *scriptedFetchClient) Close() error   { return nil }

const sampleSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset>
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`

const sampleHTML = `<html><body>
  <a href="/c">Page C</a>
  <a href="https://other.example/d">External</a>
</body></html>`

func newDiscoverer() *Discoverer {
	client := &scriptedFetchClient{byURL: map[string]fetch.Result{
		"https://example.com/sitemap.xml": {Success: true, RawContent: sampleSitemap},
		"https://example.com":             {Success: true, RawContent: sampleHTML},
	}}
	return &Discoverer{Fetcher: client, Store: store.NewMemory()}
}

func TestMap_SitemapIncludeMergesWithHTML(t *testing.T) {
	d := newDiscoverer()
	result, err := d.Map(context.Background(), Options{URL: "https://example.com", Sitemap: SitemapInclude, Limit: 10, ResultHandling: scrape.ReturnOnly})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(result.Links) != 3 {
		t.Fatalf("expected 3 same-host links (a, b, c), got %d: %+v", len(result.Links), result.Links)
	}
	for _, l := range result.Links {
		if strings.Contains(l.URL, "other.example") {
			t.Errorf("expected external link filtered out, found %q", l.URL)
		}
	}
}

func TestMap_SitemapOnlySkipsHTML(t *testing.T) {
	d := newDiscoverer()
	result, err := d.Map(context.Background(), Options{URL: "https://example.com", Sitemap: SitemapOnly, Limit: 10, ResultHandling: scrape.ReturnOnly})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(result.Links) != 2 {
		t.Errorf("expected only the 2 sitemap links, got %d: %+v", len(result.Links), result.Links)
	}
}

func TestMap_StartIndexPagination(t *testing.T) {
	d := newDiscoverer()
	first, err := d.Map(context.Background(), Options{URL: "https://example.com", Sitemap: SitemapInclude, Limit: 10, MaxResults: 2, ResultHandling: scrape.ReturnOnly})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(first.Links) != 2 || first.NextStartIndex == nil {
		t.Fatalf("expected a 2-link page with a next cursor, got %+v", first)
	}

	second, err := d.Map(context.Background(), Options{URL: "https://example.com", Sitemap: SitemapInclude, Limit: 10, MaxResults: 2, StartIndex: *first.NextStartIndex, ResultHandling: scrape.ReturnOnly})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(second.Links) != 1 || second.NextStartIndex != nil {
		t.Fatalf("expected the final single remaining link, got %+v", second)
	}
}

func TestMap_InvalidMaxResultsCapFallsBackWithWarning(t *testing.T) {
	d := newDiscoverer()
	d.MaxResultsCapOverride = 9000 // out of the 1-5000 range

	result, err := d.Map(context.Background(), Options{URL: "https://example.com", Limit: 10, ResultHandling: scrape.ReturnOnly})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning about the invalid cap")
	}
}

func TestMap_RateLimitedSitemapSurfacesClassifiedWarning(t *testing.T) {
	client := &scriptedFetchClient{byURL: map[string]fetch.Result{
		"https://example.com/sitemap.xml": {Success: false, StatusCode: 429, ErrorBody: `{"error":"Too many requests"}`, RetryAfterMs: 60000},
		"https://example.com":             {Success: true, RawContent: sampleHTML},
	}}
	d := &Discoverer{Fetcher: client, Store: store.NewMemory()}

	result, err := d.Map(context.Background(), Options{URL: "https://example.com", Sitemap: SitemapInclude, Limit: 10, ResultHandling: scrape.ReturnOnly})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	var warning string
	for _, w := range result.Warnings {
		if strings.Contains(w, "Map API Error") {
			warning = w
		}
	}
	if warning == "" {
		t.Fatalf("expected a classified rate-limit warning, got %v", result.Warnings)
	}
	for _, want := range []string{"Map API Error (429)", "Rate limit exceeded", "Details: Too many requests", "Retryable: true", "retry after 60000ms"} {
		if !strings.Contains(warning, want) {
			t.Errorf("expected warning to contain %q, got %q", want, warning)
		}
	}
}

func TestMap_SaveAndReturnPersistsLinkSet(t *testing.T) {
	d := newDiscoverer()
	result, err := d.Map(context.Background(), Options{URL: "https://example.com", Sitemap: SitemapOnly, Limit: 10, ResultHandling: scrape.SaveAndReturn})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if result.URI == "" {
		t.Fatal("expected a stored URI for saveAndReturn")
	}
	if len(result.Links) == 0 {
		t.Error("expected links returned for saveAndReturn")
	}

	entry, err := d.Store.Read(context.Background(), result.URI)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var stored []Link
	if err := json.Unmarshal(entry.Payload, &stored); err != nil {
		t.Fatalf("unmarshal stored payload: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("expected 2 persisted links, got %d", len(stored))
	}
}

func TestMap_SaveOnlyOmitsLinksButPersists(t *testing.T) {
	d := newDiscoverer()
	result, err := d.Map(context.Background(), Options{URL: "https://example.com", Sitemap: SitemapOnly, Limit: 10, ResultHandling: scrape.SaveOnly})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if result.URI == "" {
		t.Error("expected a stored URI for saveOnly")
	}
	if result.Links != nil {
		t.Errorf("expected no inline links for saveOnly, got %+v", result.Links)
	}
}

func TestMap_ReturnOnlySkipsPersistence(t *testing.T) {
	d := newDiscoverer()
	result, err := d.Map(context.Background(), Options{URL: "https://example.com", Sitemap: SitemapOnly, Limit: 10, ResultHandling: scrape.ReturnOnly})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if result.URI != "" {
		t.Errorf("expected no stored URI for returnOnly, got %q", result.URI)
	}
}

func TestMap_SearchFiltersByURLOrTitle(t *testing.T) {
	d := newDiscoverer()
	result, err := d.Map(context.Background(), Options{URL: "https://example.com", Sitemap: SitemapInclude, Limit: 10, Search: "/a", ResultHandling: scrape.ReturnOnly})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(result.Links) != 1 || result.Links[0].URL != "https://example.com/a" {
		t.Errorf("expected exactly the /a link, got %+v", result.Links)
	}
}

func TestMap_MissingURLIsRejected(t *testing.T) {
	d := newDiscoverer()
	if _, err := d.Map(context.Background(), Options{}); err == nil {
		t.Error("expected an error for a missing url")
	}
}
