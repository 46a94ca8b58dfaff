package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"github.com/pulse-fetch/pulse-fetch/internal/logger"
)

// NativeClient fetches pages with a direct HTTP request over colly. It
// does not render JavaScript and makes no attempt at anti-bot evasion;
// response bytes are charset-decoded to UTF-8 before further processing.
type NativeClient struct {
	userAgent string
}

// NewNativeClient builds a Native fetch client. userAgent is used when an
// individual request does not override it.
func NewNativeClient(userAgent string) *NativeClient {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &NativeClient{userAgent: userAgent}
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 pulse-fetch/1.0"

// Tag implements Client.
func (c *NativeClient) Tag() Tag { return Native }

// Close implements Client. Native has no resources to release.
func (c *NativeClient) Close() error { return nil }

// Fetch implements Client.
func (c *NativeClient) Fetch(ctx context.Context, url string, opts Options) (Result, error) {
	log := logger.Component("fetch.native")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}

	ua := c.userAgent
	if h, ok := opts.Headers["User-Agent"]; ok && h != "" {
		ua = h
	}

	collector := colly.NewCollector(colly.UserAgent(ua))
	collector.SetRequestTimeout(timeout)
	// Deliver non-2xx responses to OnResponse so the status check below
	// reports them as "HTTP <status>" with their body and Retry-After.
	collector.ParseHTTPErrorResponse = true

	if len(opts.Headers) > 0 {
		collector.OnRequest(func(r *colly.Request) {
			for k, v := range opts.Headers {
				r.Headers.Set(k, v)
			}
		})
	}

	var (
		status       int
		contentType  string
		body         []byte
		retryAfterMs int
		visitErr     error
	)

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		contentType = r.Headers.Get("Content-Type")
		body = r.Body
		retryAfterMs = ParseRetryAfterMs(r.Headers.Get("Retry-After"))
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
			body = r.Body
			retryAfterMs = ParseRetryAfterMs(r.Headers.Get("Retry-After"))
		}
		visitErr = err
	})

	log.Debug("native fetch starting", "url", url, "timeout", timeout)

	if err := collector.Visit(url); err != nil && visitErr == nil {
		visitErr = err
	}

	if visitErr != nil {
		log.Debug("native fetch failed", "url", url, "error", visitErr)
		return Result{
			Success:      false,
			Source:       Native,
			StatusCode:   status,
			ErrorMessage: visitErr.Error(),
		}, nil
	}

	if status < 200 || status >= 300 {
		return Result{
			Success:      false,
			Source:       Native,
			StatusCode:   status,
			ErrorMessage: fmt.Sprintf("HTTP %d", status),
			ErrorBody:    string(body),
			RetryAfterMs: retryAfterMs,
		}, nil
	}

	decoded, err := decodeCharset(body, contentType)
	if err != nil {
		// Decoding failure is not fatal to the fetch — fall back to the
		// raw bytes interpreted as UTF-8.
		decoded = string(body)
	}

	log.Debug("native fetch succeeded", "url", url, "status", status, "bytes", len(decoded))

	return Result{
		Success:     true,
		Source:      Native,
		RawContent:  decoded,
		ContentType: contentType,
		StatusCode:  status,
	}, nil
}

// decodeCharset decodes body using the charset named in contentType (or
// sniffed from a <meta> tag), falling back to UTF-8 when neither is
// present.
func decodeCharset(body []byte, contentType string) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(decoded), "\x00"), nil
}
