// Package discover implements the Map Discoverer: URL enumeration from a
// seed page with paginated return, via sitemap.xml and/or on-page
// anchor discovery, same-host/subdomain filtering, and search filtering.
package discover

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/pulse-fetch/pulse-fetch/internal/logger"
	"github.com/pulse-fetch/pulse-fetch/internal/validate"
	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
	"github.com/pulse-fetch/pulse-fetch/pkg/scrape"
	"github.com/pulse-fetch/pulse-fetch/pkg/store"
)

// SitemapMode controls how sitemap.xml participates in discovery.
type SitemapMode string

const (
	SitemapSkip    SitemapMode = "skip"
	SitemapInclude SitemapMode = "include"
	SitemapOnly    SitemapMode = "only"
)

const (
	// DefaultMaxResults is the fallback window size applied when an
	// environment-driven cap is absent or invalid.
	DefaultMaxResults = 200
	minMaxResults     = 1
	maxMaxResults     = 5000
	// DefaultLimit bounds upstream discovery when a caller doesn't set one.
	DefaultLimit = 1000
	maxLimit     = 100000
)

// Link is one discovered URL with whatever metadata was available at the
// point it was found.
type Link struct {
	URL         string
	Title       string
	Description string
}

// Options controls one map call.
type Options struct {
	URL                   string                 `validate:"required,url"`
	Search                string
	Limit                 int                    `validate:"omitempty,min=1,max=100000"`
	Sitemap               SitemapMode            `validate:"omitempty,oneof=skip include only"`
	IncludeSubdomains     bool
	IgnoreQueryParameters bool
	StartIndex            int
	MaxResults            int                    `validate:"omitempty,min=1,max=5000"`
	ResultHandling        scrape.ResultHandling  `validate:"omitempty,oneof=saveOnly saveAndReturn returnOnly"`
	Location              *fetch.Location
}

// Result is the outcome of one map call.
type Result struct {
	Links          []Link
	NextStartIndex *int
	URI            string
	Warnings       []string
}

// Discoverer runs the map operation.
type Discoverer struct {
	Fetcher fetch.Client
	Store   store.Store
	// MaxResultsCapOverride, if non-zero, stands in for the
	// environment-driven maxResults cap (internal/config wires the real
	// environment variable through this field).
	MaxResultsCapOverride int
}

// Map discovers URLs reachable from opts.URL via sitemap.xml and/or
// on-page anchors, filters and dedupes them, and returns a paginated
// window.
func (d *Discoverer) Map(ctx context.Context, opts Options) (Result, error) {
	log := logger.Component("discover")

	if err := validate.Struct(opts); err != nil {
		return Result{}, fmt.Errorf("discover: %w", err)
	}
	base, err := url.Parse(opts.URL)
	if err != nil {
		return Result{}, fmt.Errorf("discover: invalid url: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var warnings []string
	maxResults, capWarning := d.resolveMaxResults(opts.MaxResults)
	if capWarning != "" {
		warnings = append(warnings, capWarning)
	}

	seen := map[string]Link{}
	add := func(raw, title, desc string) {
		if len(seen) >= limit {
			return
		}
		resolved, err := base.Parse(strings.TrimSpace(raw))
		if err != nil || resolved.Scheme == "" || resolved.Host == "" {
			return
		}
		if !sameHostOrSubdomain(base.Hostname(), resolved.Hostname(), opts.IncludeSubdomains) {
			return
		}
		if opts.IgnoreQueryParameters {
			resolved.RawQuery = ""
		}
		resolved.Fragment = ""
		final := resolved.String()

		if opts.Search != "" {
			needle := strings.ToLower(opts.Search)
			if !strings.Contains(strings.ToLower(final), needle) && !strings.Contains(strings.ToLower(title), needle) {
				return
			}
		}
		if _, exists := seen[final]; exists {
			return
		}
		seen[final] = Link{URL: final, Title: strings.TrimSpace(title), Description: strings.TrimSpace(desc)}
	}

	mode := opts.Sitemap
	if mode == "" {
		mode = SitemapInclude
	}

	if mode == SitemapOnly || mode == SitemapInclude {
		if err := d.collectFromSitemap(ctx, base, add); err != nil {
			log.Debug("sitemap discovery failed", "url", opts.URL, "error", err)
			warnings = append(warnings, "sitemap discovery failed: "+err.Error())
		}
	}
	if mode == SitemapSkip || mode == SitemapInclude {
		if err := d.collectFromHTML(ctx, base, opts.Location, add); err != nil {
			log.Debug("html discovery failed", "url", opts.URL, "error", err)
			warnings = append(warnings, "html link discovery failed: "+err.Error())
		}
	}

	all := make([]Link, 0, len(seen))
	for _, l := range seen {
		all = append(all, l)
	}
	// Stable ordering so startIndex pagination is consistent across
	// separate calls, since each call rebuilds the full set from scratch.
	sort.Slice(all, func(i, j int) bool { return all[i].URL < all[j].URL })

	page, next := windowLinks(all, opts.StartIndex, maxResults)
	result := Result{Links: page, NextStartIndex: next, Warnings: warnings}

	if opts.ResultHandling != scrape.ReturnOnly && d.Store != nil {
		uri, werr := d.persist(ctx, opts.URL, all)
		if werr != nil {
			result.Warnings = append(result.Warnings, "failed to persist discovered links: "+werr.Error())
		} else {
			result.URI = uri
		}
	}
	if opts.ResultHandling == scrape.SaveOnly {
		result.Links = nil
	}

	return result, nil
}

// resolveMaxResults validates the caller-requested window size against
// the environment-driven cap, falling back to DefaultMaxResults with a
// warning on an invalid value.
func (d *Discoverer) resolveMaxResults(requested int) (int, string) {
	capLimit := d.MaxResultsCapOverride
	if capLimit < minMaxResults || capLimit > maxMaxResults {
		if capLimit != 0 {
			return DefaultMaxResults, fmt.Sprintf("maxResults cap %d out of range [%d, %d]; falling back to %d", capLimit, minMaxResults, maxMaxResults, DefaultMaxResults)
		}
		capLimit = maxMaxResults
	}

	if requested <= 0 {
		return DefaultMaxResults, ""
	}
	if requested < minMaxResults || requested > maxMaxResults {
		return DefaultMaxResults, fmt.Sprintf("maxResults %d out of range [%d, %d]; falling back to %d", requested, minMaxResults, maxMaxResults, DefaultMaxResults)
	}
	if requested > capLimit {
		return capLimit, fmt.Sprintf("maxResults %d exceeds configured cap %d; capping", requested, capLimit)
	}
	return requested, ""
}

// windowLinks applies startIndex/maxResults pagination over a stable
// ordering of links.
func windowLinks(links []Link, startIndex, maxResults int) ([]Link, *int) {
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= len(links) {
		return nil, nil
	}
	end := startIndex + maxResults
	if end >= len(links) {
		return links[startIndex:], nil
	}
	next := end
	return links[startIndex:end], &next
}

func sameHostOrSubdomain(baseHost, host string, includeSubdomains bool) bool {
	if host == "" {
		return false
	}
	if strings.EqualFold(baseHost, host) {
		return true
	}
	if includeSubdomains && strings.HasSuffix(strings.ToLower(host), "."+strings.ToLower(baseHost)) {
		return true
	}
	return false
}
