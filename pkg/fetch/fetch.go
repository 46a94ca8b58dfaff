// Package fetch implements the two concrete fetch strategies behind a
// common interface: a direct-HTTP Native client and a JS-rendering Vendor
// client. Both report failures through FetchResult rather than an error
// return, so the Strategy Selector can treat every outcome uniformly.
package fetch

import (
	"context"
	"time"
)

// Tag identifies a fetch strategy.
type Tag string

const (
	Native Tag = "native"
	Vendor Tag = "vendor"
)

// Action is an opaque browser-automation step (click, scroll, wait,
// screenshot, type, ...). The core never interprets its fields beyond
// "type" for execution by the Vendor client; everything else is metadata
// that affects caching but not core semantics.
type Action map[string]any

// TypeOf returns the action's "type" field, or "" if absent/non-string.
func (a Action) TypeOf() string {
	if v, ok := a["type"].(string); ok {
		return v
	}
	return ""
}

// Location steers vendor-side geolocation-aware rendering.
type Location struct {
	Country   string
	Languages []string
}

// Options controls a single fetch attempt. Native honors a subset;
// everything else is a Vendor-only knob tolerated but ignored by Native.
type Options struct {
	Timeout  time.Duration
	Headers  map[string]string
	WaitFor  time.Duration
	Actions  []Action

	// Vendor-only.
	ProxyMode       string // basic | stealth | auto
	BlockAds        bool
	IncludeTags     []string
	ExcludeTags     []string
	Formats         []string // markdown, html, rawHtml, links, images, screenshot, summary, branding
	OnlyMainContent bool
	Location        *Location
}

// DefaultOptions returns the fetcher defaults used when a caller omits a
// field.
func DefaultOptions() Options {
	return Options{
		Timeout:         60 * time.Second,
		ProxyMode:       "auto",
		BlockAds:        true,
		OnlyMainContent: true,
		Formats:         []string{"markdown", "html"},
	}
}

// VendorMeta carries the vendor-side projections a caller may have asked
// for via Options.Formats.
type VendorMeta struct {
	Title         string
	Description   string
	SourceURL     string
	StatusCode    int
	Screenshot    []byte
	ScreenshotURL string
	Links         []string
	Images        []string
}

// Result is the outcome of one strategy attempt.
type Result struct {
	Success      bool
	Source       Tag
	RawContent   string
	ContentType  string
	StatusCode   int
	IsAuthError  bool
	ErrorMessage string
	Vendor       *VendorMeta

	// ErrorBody and RetryAfterMs are only populated on a failed, non-2xx
	// response. They let a caller that wraps Fetch (the Map Discoverer,
	// the Crawl Job Proxy) classify the failure through ClassifyStatus
	// with the real response detail and advisory wait instead of just a
	// bare status code.
	ErrorBody    string
	RetryAfterMs int
}

// Classify turns a failed Result's status/body/retry-after into a
// VendorError using the shared taxonomy, for callers that need more than
// the bare ErrorMessage (e.g. to render UpstreamMessage).
func (r Result) Classify() *VendorError {
	detail := ExtractErrorDetail(r.ErrorBody)
	if detail == "" {
		detail = r.ErrorMessage
	}
	ve := ClassifyStatus(r.StatusCode, detail)
	if r.RetryAfterMs > 0 {
		ve.RetryAfter = r.RetryAfterMs
	}
	return ve
}

// Client abstracts one fetch strategy. Fetch never returns an error for
// ordinary failures (timeouts, non-2xx, network errors) — those are
// reported via Result.Success=false so the Selector can uniformly collect
// diagnostics. A non-nil error signals the client cannot run at all, e.g.
// it was asked to fetch with a cancelled context.
type Client interface {
	Fetch(ctx context.Context, url string, opts Options) (Result, error)
	Tag() Tag
	Close() error
}
