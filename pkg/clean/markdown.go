package clean

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pulse-fetch/pulse-fetch/internal/logger"
)

// linkDensityThreshold is the fraction of block text that may live inside
// anchor tags before the block is considered a navigation/link-farm region
// and dropped by the main-content heuristic.
const linkDensityThreshold = 0.5

// blockSelectors lists the block-level containers the main-content
// heuristic evaluates independently.
var blockSelectors = []string{"div", "section", "aside", "article", "nav", "header", "footer", "p"}

// MarkdownCleaner converts HTML to Markdown, applying selector-based
// include/exclude rules and a link-density main-content heuristic before
// conversion.
type MarkdownCleaner struct{}

// NewMarkdownCleaner returns the default Cleaner implementation.
func NewMarkdownCleaner() *MarkdownCleaner { return &MarkdownCleaner{} }

func (c *MarkdownCleaner) Clean(html string, opts Options) (string, error) {
	log := logger.Component("clean.markdown")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &CleanError{Cause: fmt.Errorf("parse html: %w", err)}
	}

	// Input whose body holds nothing but text (such as this cleaner's own
	// Markdown output) has no markup to strip or convert; it is returned
	// unchanged apart from trailing newlines, so a second pass is a no-op.
	textOnly := doc.Find("head").Children().Length() == 0
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "#text" {
			textOnly = false
		}
	})
	if textOnly {
		return strings.TrimRight(html, "\n") + "\n", nil
	}

	doc.Find("script, style, noscript").Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		removeCommentsIn(s)
	})

	for _, sel := range opts.ExcludeSelectors {
		doc.Find(sel).Remove()
	}

	switch {
	case len(opts.IncludeSelectors) > 0:
		restrictToSelectors(doc, opts.IncludeSelectors)
	case opts.OnlyMainContent:
		removeByLinkDensity(doc)
	}

	cleanedHTML, err := doc.Html()
	if err != nil {
		return "", &CleanError{Cause: fmt.Errorf("serialize html: %w", err)}
	}

	out, err := md.ConvertString(cleanedHTML)
	if err != nil {
		log.Warn("markdown conversion failed", "error", err)
		return "", &CleanError{Cause: fmt.Errorf("convert markdown: %w", err)}
	}

	return strings.TrimRight(out, "\n") + "\n", nil
}

// restrictToSelectors keeps only the nodes matching any of sels (and their
// descendants), replacing the body with just those fragments. IncludeSelectors
// take precedence over OnlyMainContent.
func restrictToSelectors(doc *goquery.Document, sels []string) {
	var kept []string
	for _, sel := range sels {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if h, err := goquery.OuterHtml(s); err == nil {
				kept = append(kept, h)
			}
		})
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return
	}
	body.SetHtml(strings.Join(kept, "\n"))
}

// removeByLinkDensity drops block-level elements whose text is mostly
// anchor-tag text, a common signature of navigation and link-farm regions.
func removeByLinkDensity(doc *goquery.Document) {
	sel := strings.Join(blockSelectors, ", ")
	var toRemove []*goquery.Selection
	doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
		totalText := s.Text()
		if len(strings.TrimSpace(totalText)) == 0 {
			return
		}
		var linkLen int
		s.Find("a").Each(func(_ int, a *goquery.Selection) {
			linkLen += len(a.Text())
		})
		density := float64(linkLen) / float64(len(totalText))
		if density > linkDensityThreshold {
			toRemove = append(toRemove, s)
		}
	})
	for _, s := range toRemove {
		s.Remove()
	}
}

// removeCommentsIn strips HTML comment nodes from s's children. goquery
// does not expose a Comment-node selector, so this walks raw *html.Node
// siblings via the underlying node set.
func removeCommentsIn(s *goquery.Selection) {
	for _, n := range s.Nodes {
		child := n.FirstChild
		for child != nil {
			next := child.NextSibling
			if child.Type == html.CommentNode {
				n.RemoveChild(child)
			}
			child = next
		}
	}
}
