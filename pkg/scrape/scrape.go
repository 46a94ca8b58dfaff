// Package scrape implements the Scrape Orchestrator: the single-URL
// acquisition pipeline that threads cache lookup, strategy selection,
// cleaning, extraction, and storage into one request.
package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulse-fetch/pulse-fetch/internal/logger"
	"github.com/pulse-fetch/pulse-fetch/internal/validate"
	"github.com/pulse-fetch/pulse-fetch/pkg/clean"
	"github.com/pulse-fetch/pulse-fetch/pkg/extract"
	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
	"github.com/pulse-fetch/pulse-fetch/pkg/store"
	"github.com/pulse-fetch/pulse-fetch/pkg/strategy"
)

// ResultHandling selects how a scrape's payload is surfaced versus
// persisted.
type ResultHandling string

const (
	SaveOnly      ResultHandling = "saveOnly"
	SaveAndReturn ResultHandling = "saveAndReturn"
	ReturnOnly    ResultHandling = "returnOnly"
)

// Default option values applied when a Request leaves a field unset.
const (
	DefaultTimeout  = 60 * time.Second
	DefaultMaxChars = 100000
	DefaultMaxAge   = 48 * time.Hour // 172800000ms
)

// Request is the full set of recognized scrape options.
type Request struct {
	URL string `validate:"required,url"`

	Timeout        time.Duration
	MaxChars       int
	StartIndex     int
	ResultHandling ResultHandling `validate:"omitempty,oneof=saveOnly saveAndReturn returnOnly"`
	ForceRescrape  bool
	CleanScrape    bool
	MaxAge         time.Duration

	ProxyMode string `validate:"omitempty,oneof=basic stealth auto"`
	BlockAds  bool
	Headers   map[string]string
	WaitFor   time.Duration
	Location  *fetch.Location

	IncludeSelectors []string
	ExcludeSelectors []string
	Formats          []string `validate:"omitempty,dive,oneof=markdown html screenshot links images"`
	OnlyMainContent  bool
	Actions          []fetch.Action

	Extract               string // free-text query; empty disables extraction
	IgnoreQueryParameters bool
}

// DefaultRequest returns a Request pre-populated with the standard
// defaults, including the boolean options (cleanScrape,
// blockAds, onlyMainContent all default true) that withDefaults cannot
// safely infer from a zero value. Callers building a Request from parsed
// tool-call arguments should start here and override only the fields the
// caller actually supplied, the same way fetch.DefaultOptions is used.
func DefaultRequest(url string) Request {
	return Request{
		URL:             url,
		Timeout:         DefaultTimeout,
		MaxChars:        DefaultMaxChars,
		ResultHandling:  SaveAndReturn,
		CleanScrape:     true,
		MaxAge:          DefaultMaxAge,
		ProxyMode:       "auto",
		BlockAds:        true,
		Formats:         []string{"markdown", "html"},
		OnlyMainContent: true,
	}
}

// withDefaults fills zero-valued fields with the standard defaults.
// It only covers fields whose zero value is unambiguous (numeric/string);
// boolean options that default true are the caller's responsibility via
// DefaultRequest, since a bare Request{} cannot distinguish "unset" from
// an explicit false.
func (r Request) withDefaults() Request {
	if r.Timeout == 0 {
		r.Timeout = DefaultTimeout
	}
	if r.MaxChars == 0 {
		r.MaxChars = DefaultMaxChars
	}
	if r.ResultHandling == "" {
		r.ResultHandling = SaveAndReturn
	}
	if r.MaxAge == 0 && !r.ForceRescrape {
		r.MaxAge = DefaultMaxAge
	}
	if r.ProxyMode == "" {
		r.ProxyMode = "auto"
	}
	if len(r.Formats) == 0 {
		r.Formats = []string{"markdown", "html"}
	}
	return r
}

func wantsScreenshot(formats []string) bool {
	for _, f := range formats {
		if f == "screenshot" {
			return true
		}
	}
	return false
}

// Result is the response of one scrape operation. The Orchestrator
// never returns a Go error across the tool boundary for ordinary
// failures; IsError/Message carry that instead.
type Result struct {
	IsError bool
	Message string

	// Tier identifies which payload Content holds: "raw", "cleaned", or
	// "extracted", matching whichever stage produced the final output.
	Tier    string
	Content string
	URI     string

	IsAuthError bool
	Warnings    []string

	NextStartIndex *int

	Vendor *fetch.VendorMeta
}

// Orchestrator wires the Resource Store, Strategy Selector, Cleaner, and
// optional Extractor into one acquisition pipeline.
type Orchestrator struct {
	Store     store.Store
	Selector  *strategy.Selector
	Cleaner   clean.Cleaner
	Extractor extract.Provider // nil disables extraction
}

// Scrape runs the full pipeline for one request.
func (o *Orchestrator) Scrape(ctx context.Context, req Request) (Result, error) {
	log := logger.Component("scrape")
	req = req.withDefaults()

	if err := validate.Struct(req); err != nil {
		return Result{IsError: true, Message: err.Error()}, nil
	}
	if req.Extract != "" && o.Extractor == nil {
		return Result{IsError: true, Message: "input error: extract requested but no LLM provider is configured"}, nil
	}

	normalized, err := store.NormalizeURL(req.URL, req.IgnoreQueryParameters)
	if err != nil {
		return Result{IsError: true, Message: fmt.Sprintf("input error: invalid url: %v", err)}, nil
	}

	actionsJSON, err := store.CanonicalActionsJSON(req.Actions)
	if err != nil {
		return Result{IsError: true, Message: fmt.Sprintf("input error: invalid actions: %v", err)}, nil
	}

	screenshotRequested := wantsScreenshot(req.Formats)

	if !req.ForceRescrape && !screenshotRequested {
		if cached, ok := o.lookupCache(ctx, normalized, req); ok {
			return o.render(cached.Tier, cached.Text(), cached.URI, req), nil
		}
	}

	opts := fetch.Options{
		Timeout:         req.Timeout,
		Headers:         req.Headers,
		WaitFor:         req.WaitFor,
		Actions:         req.Actions,
		ProxyMode:       req.ProxyMode,
		BlockAds:        req.BlockAds,
		IncludeTags:     req.IncludeSelectors,
		ExcludeTags:     req.ExcludeSelectors,
		Formats:         req.Formats,
		OnlyMainContent: req.OnlyMainContent,
		Location:        req.Location,
	}

	fetchResult, _, err := o.Selector.Select(ctx, normalized, opts)
	if err != nil {
		return Result{IsError: true, Message: fmt.Sprintf("fetch error: %v", err)}, nil
	}
	if !fetchResult.Success {
		return Result{IsError: true, Message: fetchResult.ErrorMessage, IsAuthError: fetchResult.IsAuthError}, nil
	}

	var warnings []string
	finalTier := store.TierRaw
	finalContent := fetchResult.RawContent
	var cleanedContent, extractedContent string

	if req.CleanScrape && isHTMLLike(fetchResult.ContentType, fetchResult.RawContent) {
		cleaned, cerr := o.Cleaner.Clean(fetchResult.RawContent, clean.Options{
			IncludeSelectors: req.IncludeSelectors,
			ExcludeSelectors: req.ExcludeSelectors,
			OnlyMainContent:  req.OnlyMainContent,
		})
		if cerr != nil {
			log.Warn("clean failed, falling back to raw content", "error", cerr)
			warnings = append(warnings, fmt.Sprintf("clean error: %v", cerr))
		} else {
			finalTier = store.TierCleaned
			finalContent = cleaned
			cleanedContent = cleaned
		}
	}

	if req.Extract != "" && o.Extractor != nil {
		result, eerr := o.Extractor.Extract(ctx, finalContent, req.Extract)
		if eerr != nil || !result.Success {
			msg := fmt.Sprintf("extract error: %v", eerr)
			if eerr == nil {
				msg = fmt.Sprintf("extract error: %s", result.Error)
			}
			log.Warn("extract failed, keeping prior tier content", "error", msg)
			warnings = append(warnings, msg)
		} else {
			extractedContent = result.Content
			finalTier = store.TierExtracted
			finalContent = extractedContent
		}
	}

	writeIn := store.WriteMultiInput{
		URL:          normalized,
		ExtractQuery: req.Extract,
		Actions:      actionsJSON,
		MimeType:     "text/markdown",
		Raw:          []byte(fetchResult.RawContent),
	}
	if cleanedContent != "" {
		writeIn.Cleaned = []byte(cleanedContent)
	}
	if extractedContent != "" {
		writeIn.Extracted = []byte(extractedContent)
	}

	var primaryURI string
	if req.ResultHandling != ReturnOnly {
		writeResult, werr := o.Store.WriteMulti(ctx, writeIn)
		if werr != nil {
			log.Warn("storage failed for all tiers", "error", werr)
			warnings = append(warnings, fmt.Sprintf("storage error: %v", werr))
		} else {
			switch finalTier {
			case store.TierRaw:
				primaryURI = writeResult.RawURI
			case store.TierCleaned:
				primaryURI = writeResult.CleanedURI
			case store.TierExtracted:
				primaryURI = writeResult.ExtractedURI
			}
		}
	}

	result := o.render(finalTier, finalContent, primaryURI, req)
	result.Warnings = append(result.Warnings, warnings...)
	result.Vendor = fetchResult.Vendor
	return result, nil
}

// lookupCache consults the store for a fresh entry at the requested tier
// priority (extracted > cleaned > raw, since that is the most-processed
// tier available), honoring req.MaxAge.
func (o *Orchestrator) lookupCache(ctx context.Context, normalized string, req Request) (store.ResourceEntry, bool) {
	entries, err := o.Store.FindByURLAndExtract(ctx, normalized, req.Extract)
	if err != nil || len(entries) == 0 {
		return store.ResourceEntry{}, false
	}

	byTier := map[store.Tier]store.ResourceEntry{}
	for _, e := range entries {
		if existing, ok := byTier[e.Tier]; !ok || e.CreatedAt.After(existing.CreatedAt) {
			byTier[e.Tier] = e
		}
	}

	order := []store.Tier{store.TierExtracted, store.TierCleaned, store.TierRaw}
	if req.Extract == "" {
		order = []store.Tier{store.TierCleaned, store.TierRaw}
	}
	for _, tier := range order {
		e, ok := byTier[tier]
		if !ok {
			continue
		}
		if req.MaxAge > 0 && time.Since(e.CreatedAt) > req.MaxAge {
			continue
		}
		return e, true
	}
	return store.ResourceEntry{}, false
}

// render applies result-handling mode and character-window pagination to
// the final tier payload.
func (o *Orchestrator) render(tier store.Tier, content, uri string, req Request) Result {
	r := Result{Tier: string(tier)}

	window, next := paginate(content, req.StartIndex, req.MaxChars)
	r.NextStartIndex = next

	switch req.ResultHandling {
	case SaveOnly:
		r.URI = uri
	case ReturnOnly:
		r.Content = window
	default: // SaveAndReturn
		r.Content = window
		r.URI = uri
	}
	return r
}

// paginate returns the substring of content starting at startIndex and
// spanning at most maxChars runes, plus the next start index if more
// content remains, per testable property 5.
func paginate(content string, startIndex, maxChars int) (string, *int) {
	runes := []rune(content)
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= len(runes) {
		return "", nil
	}
	end := startIndex + maxChars
	if end >= len(runes) {
		return string(runes[startIndex:]), nil
	}
	next := end
	return string(runes[startIndex:end]), &next
}

// isHTMLLike reports whether content should be treated as HTML for
// cleaning purposes, using the declared content type with a sniffing
// fallback for servers that omit or misreport it.
func isHTMLLike(contentType, content string) bool {
	if contentType != "" {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	trimmed := strings.TrimSpace(content)
	return strings.HasPrefix(trimmed, "<")
}
