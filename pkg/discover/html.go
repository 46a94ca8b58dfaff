package discover

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
)

// collectFromHTML fetches base and extracts anchor hrefs with their link
// text as a title.
func (d *Discoverer) collectFromHTML(ctx context.Context, base *url.URL, loc *fetch.Location, add func(urlStr, title, desc string)) error {
	result, err := d.Fetcher.Fetch(ctx, base.String(), fetch.Options{Location: loc})
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s", result.Classify().UpstreamMessage("Map"))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.RawContent))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		add(href, s.Text(), "")
	})
	return nil
}
