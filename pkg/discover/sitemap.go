package discover

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"

	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
)

// maxSitemapIndexDepth bounds recursive sitemap-index following, so a
// sitemap index that points at itself can't recurse forever.
const maxSitemapIndexDepth = 2

type sitemapURLEntry struct {
	Loc string `xml:"loc"`
}

type sitemapURLSet struct {
	XMLName xml.Name          `xml:"urlset"`
	URLs    []sitemapURLEntry `xml:"url"`
}

type sitemapIndexEntry struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	XMLName  xml.Name            `xml:"sitemapindex"`
	Sitemaps []sitemapIndexEntry `xml:"sitemap"`
}

// collectFromSitemap fetches the conventional /sitemap.xml location and
// feeds every <loc> it finds (recursing through sitemap indexes) to add.
func (d *Discoverer) collectFromSitemap(ctx context.Context, base *url.URL, add func(urlStr, title, desc string)) error {
	sitemapURL := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/sitemap.xml"}
	return d.fetchSitemap(ctx, sitemapURL.String(), add, 0)
}

func (d *Discoverer) fetchSitemap(ctx context.Context, sitemapURL string, add func(urlStr, title, desc string), depth int) error {
	if depth > maxSitemapIndexDepth {
		return nil
	}

	result, err := d.Fetcher.Fetch(ctx, sitemapURL, fetch.Options{})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Classify().UpstreamMessage("Map"))
	}

	body := []byte(result.RawContent)

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
		for _, entry := range index.Sitemaps {
			_ = d.fetchSitemap(ctx, entry.Loc, add, depth+1)
		}
		return nil
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return fmt.Errorf("parse sitemap xml: %w", err)
	}
	for _, u := range set.URLs {
		if u.Loc != "" {
			add(u.Loc, "", "")
		}
	}
	return nil
}
