package fetch

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/pulse-fetch/pulse-fetch/internal/logger"
)

// VendorClient is a local stand-in for an external JS-rendering scraping
// service. The real vendor would be an out-of-scope HTTP API; this
// backend executes the same contract (actions, blockAds, location,
// formats; proxyMode is accepted but not applied) against an in-process
// headless browser so the rest
// of the pipeline — Strategy Selector, diagnostics, error taxonomy — can
// be built and exercised against a working second strategy.
type VendorClient struct {
	allocCtx  context.Context
	cancelCtx context.CancelFunc
	userAgent string
}

// NewVendorClient allocates a headless browser instance shared across
// fetches. Close releases it.
func NewVendorClient(userAgent string) *VendorClient {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &VendorClient{allocCtx: allocCtx, cancelCtx: cancel, userAgent: userAgent}
}

// Tag implements Client.
func (c *VendorClient) Tag() Tag { return Vendor }

// Close implements Client.
func (c *VendorClient) Close() error {
	if c.cancelCtx != nil {
		c.cancelCtx()
	}
	return nil
}

// Fetch implements Client. It applies blockAds/location as best-effort
// local browser settings (the real vendor applies them upstream; here
// they steer the in-process browser instead; proxyMode is not applied),
// executes the opaque
// action list, and classifies 401/403 responses as an auth error so the
// Selector stops fallback.
func (c *VendorClient) Fetch(ctx context.Context, target string, opts Options) (Result, error) {
	log := logger.Component("fetch.vendor")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}

	browserCtx, cancelBrowser := chromedp.NewContext(c.allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	var (
		status       int
		statusSeen   bool
		retryAfterMs int
		mainURL      = target
		navErr       error
	)

	chromedp.ListenTarget(timeoutCtx, func(ev any) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Response.URL == mainURL || !statusSeen {
				status = int(resp.Response.Status)
				statusSeen = true
				for k, v := range resp.Response.Headers {
					if strings.EqualFold(k, "Retry-After") {
						if s, ok := v.(string); ok {
							retryAfterMs = ParseRetryAfterMs(s)
						}
					}
				}
			}
		}
	})

	if opts.BlockAds {
		// Best-effort: block a short list of common ad/tracker hosts via
		// network.SetBlockedURLs; the list is kept minimal since
		// ad-blocking fidelity isn't this backend's job, only standing in
		// for the real vendor's own blocking.
		_ = chromedp.Run(timeoutCtx, network.SetBlockedURLs([]string{
			"*doubleclick.net*", "*googlesyndication.com*", "*google-analytics.com*",
		}))
	}

	headers := network.Headers{}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if opts.Location != nil && len(opts.Location.Languages) > 0 {
		headers["Accept-Language"] = strings.Join(opts.Location.Languages, ",")
	}

	actions := []chromedp.Action{network.Enable()}
	if len(headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	actions = append(actions, chromedp.Navigate(target))
	actions = append(actions, chromedp.WaitVisible("body", chromedp.ByQuery))
	if opts.WaitFor > 0 {
		actions = append(actions, chromedp.Sleep(opts.WaitFor))
	}
	for _, a := range opts.Actions {
		if act := chromedpActionFor(a); act != nil {
			actions = append(actions, act)
		}
	}

	var html, title string
	var screenshot []byte
	wantScreenshot := containsFormat(opts.Formats, "screenshot")
	actions = append(actions, chromedp.OuterHTML("html", &html), chromedp.Title(&title))
	if wantScreenshot {
		actions = append(actions, chromedp.CaptureScreenshot(&screenshot))
	}

	log.Debug("vendor fetch starting", "url", target, "actions", len(actions))
	navErr = chromedp.Run(timeoutCtx, actions...)
	if navErr != nil {
		log.Debug("vendor fetch failed", "url", target, "error", navErr)
		return Result{
			Success:      false,
			Source:       Vendor,
			StatusCode:   status,
			IsAuthError:  IsAuthError(status),
			ErrorMessage: navErr.Error(),
		}, nil
	}

	if statusSeen && (status < 200 || status >= 300) {
		ve := ClassifyStatus(status, ExtractErrorDetail(html))
		if retryAfterMs > 0 {
			ve.RetryAfter = retryAfterMs
		}
		log.Debug("vendor fetch classified upstream error", "url", target, "status", status, "kind", ve.Kind)
		return Result{
			Success:      false,
			Source:       Vendor,
			StatusCode:   status,
			IsAuthError:  IsAuthError(status),
			ErrorMessage: ve.Error(),
			ErrorBody:    html,
			RetryAfterMs: retryAfterMs,
		}, nil
	}

	meta := &VendorMeta{
		Title:      title,
		SourceURL:  target,
		StatusCode: status,
		Screenshot: screenshot,
	}
	if containsFormat(opts.Formats, "links") || containsFormat(opts.Formats, "images") {
		links, images := extractLinksAndImages(html, target)
		meta.Links = links
		meta.Images = images
	}

	log.Debug("vendor fetch succeeded", "url", target, "status", status, "bytes", len(html))

	return Result{
		Success:    true,
		Source:     Vendor,
		RawContent: html,
		StatusCode: status,
		Vendor:     meta,
	}, nil
}

func containsFormat(formats []string, want string) bool {
	for _, f := range formats {
		if f == want {
			return true
		}
	}
	return false
}

// chromedpActionFor translates one opaque Action into a chromedp step.
// Unknown action types are skipped rather than failing the whole fetch —
// the action list is opaque metadata the core does not fully interpret.
func chromedpActionFor(a Action) chromedp.Action {
	switch a.TypeOf() {
	case "click":
		if sel, ok := a["selector"].(string); ok && sel != "" {
			return chromedp.Click(sel, chromedp.ByQuery)
		}
	case "wait":
		if ms, ok := a["milliseconds"].(float64); ok && ms > 0 {
			return chromedp.Sleep(time.Duration(ms) * time.Millisecond)
		}
	case "scroll":
		return chromedp.ScrollIntoView("body", chromedp.ByQuery)
	case "write", "type":
		sel, _ := a["selector"].(string)
		text, _ := a["text"].(string)
		if sel != "" && text != "" {
			return chromedp.SendKeys(sel, text, chromedp.ByQuery)
		}
	}
	return nil
}

// extractLinksAndImages walks the parsed DOM for anchors and images, used
// to populate the Vendor "links"/"images" output formats.
func extractLinksAndImages(html, pageURL string) (links, images []string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil
	}
	base, _ := url.Parse(pageURL)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		resolved := resolveURL(base, href)
		if resolved != "" {
			links = append(links, resolved)
		}
	})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			return
		}
		resolved := resolveURL(base, src)
		if resolved != "" {
			images = append(images, resolved)
		}
	})
	return links, images
}

func resolveURL(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if !u.IsAbs() && base != nil {
		u = base.ResolveReference(u)
	}
	return u.String()
}
