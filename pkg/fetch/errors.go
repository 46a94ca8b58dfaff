package fetch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies an upstream vendor response into the taxonomy shared by
// the Vendor Fetcher and the Crawl Job Proxy.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadRequest
	KindAuth
	KindQuota
	KindRateLimit
	KindUpstreamServer
)

// VendorError is the classified form of an upstream (or network-level)
// failure. Retryable and RetryAfter give the Selector/Crawl Job Proxy
// enough to decide whether and how to retry.
type VendorError struct {
	Kind       Kind
	StatusCode int
	Retryable  bool
	RetryAfter int // advisory milliseconds, 0 if not applicable
	Detail     string
}

func (e *VendorError) Error() string {
	switch e.Kind {
	case KindAuth:
		return fmt.Sprintf("Vendor authentication error (check API key): %s", e.Detail)
	case KindQuota:
		return fmt.Sprintf("quota exceeded, check billing: %s", e.Detail)
	case KindRateLimit:
		return fmt.Sprintf("rate limited, retry after %dms: %s", e.RetryAfter, e.Detail)
	case KindUpstreamServer:
		return fmt.Sprintf("upstream server error: %s", e.Detail)
	case KindBadRequest:
		return fmt.Sprintf("bad request: %s", e.Detail)
	default:
		return fmt.Sprintf("vendor error: %s", e.Detail)
	}
}

// kindLabel is the short human label for a Kind used by UpstreamMessage;
// Error renders its own wording per Kind.
func kindLabel(k Kind) string {
	switch k {
	case KindAuth:
		return "Vendor authentication error"
	case KindQuota:
		return "Quota exceeded"
	case KindRateLimit:
		return "Rate limit exceeded"
	case KindUpstreamServer:
		return "Upstream server error"
	case KindBadRequest:
		return "Bad request"
	default:
		return "Unknown error"
	}
}

// UpstreamMessage renders the full upstream-call failure text surfaced by
// callers outside the Vendor Fetcher itself (the Map Discoverer, the Crawl
// Job Proxy): "<api> API Error (<status>): <label>. Details: <detail>.
// Retryable: <bool>[, retry after <ms>ms]".
func (e *VendorError) UpstreamMessage(api string) string {
	msg := fmt.Sprintf("%s API Error (%d): %s. Details: %s. Retryable: %t", api, e.StatusCode, kindLabel(e.Kind), e.Detail, e.Retryable)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %dms", e.RetryAfter)
	}
	return msg
}

// ClassifyStatus maps an HTTP status code from the vendor to a VendorError.
// status <= 0 is treated as a network-level failure (retryable,
// UpstreamServer-equivalent).
func ClassifyStatus(status int, detail string) *VendorError {
	switch {
	case status <= 0:
		return &VendorError{Kind: KindUpstreamServer, StatusCode: status, Retryable: true, Detail: detail}
	case status == 400 || status == 404:
		return &VendorError{Kind: KindBadRequest, StatusCode: status, Retryable: false, Detail: detail}
	case status == 401 || status == 403:
		return &VendorError{Kind: KindAuth, StatusCode: status, Retryable: false, Detail: detail}
	case status == 402:
		return &VendorError{Kind: KindQuota, StatusCode: status, Retryable: false, Detail: detail}
	case status == 429:
		return &VendorError{Kind: KindRateLimit, StatusCode: status, Retryable: true, RetryAfter: 2000, Detail: detail}
	case status >= 500:
		return &VendorError{Kind: KindUpstreamServer, StatusCode: status, Retryable: true, Detail: detail}
	default:
		return &VendorError{Kind: KindUnknown, StatusCode: status, Retryable: false, Detail: detail}
	}
}

// IsAuthError reports whether status is one the taxonomy treats as an
// authentication failure, which stops Strategy Selector fallback.
func IsAuthError(status int) bool {
	return status == 401 || status == 403
}

// errorDetailKeys are the JSON body keys ExtractErrorDetail tries, in
// order, before falling back to the raw body.
var errorDetailKeys = []string{"error", "message", "detail"}

// ExtractErrorDetail pulls a human-readable message out of a failed
// response body. Most upstreams report errors as {"error": "..."} or
// similar; anything else is passed through verbatim, trimmed and bounded
// so a non-JSON HTML error page doesn't blow up the surfaced message.
func ExtractErrorDetail(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ""
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(trimmed), &generic); err == nil {
		for _, key := range errorDetailKeys {
			if v, ok := generic[key]; ok {
				if s, ok := v.(string); ok && s != "" {
					return s
				}
			}
		}
	}

	const maxDetailLen = 500
	if len(trimmed) > maxDetailLen {
		return trimmed[:maxDetailLen]
	}
	return trimmed
}

// ParseRetryAfterMs parses an HTTP Retry-After header value (delta-seconds
// form) into milliseconds. It returns 0 if the header is absent or not a
// plain integer (the HTTP-date form isn't produced by any upstream this
// backend stands in for).
func ParseRetryAfterMs(header string) int {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds * 1000
}
