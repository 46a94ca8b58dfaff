package crawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractLinks collects same-page anchor hrefs resolved against base,
// skipping fragment-only and javascript: links. No CSS-selector/regex
// narrowing — the Proxy's contract has no slot for it.
func extractLinks(html, base string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		resolved, err := baseURL.Parse(href)
		if err != nil {
			return
		}
		resolved.Fragment = ""
		links = append(links, resolved.String())
	})
	return links
}
