package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL produces the canonical form used for both fetching and
// fingerprinting: lower-cased scheme/host, no default port, no trailing
// slash on a bare path, and — since query-parameter order must not affect
// identity when ignoreQueryParameters is set — callers that want that
// behavior should pass ignoreQuery=true so the query string is dropped
// entirely rather than merely re-sorted.
func NormalizeURL(raw string, ignoreQuery bool) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	if ignoreQuery {
		u.RawQuery = ""
	} else if u.RawQuery != "" {
		// Stable sort of query parameters: two requests differing only in
		// parameter order must fingerprint identically (spec invariant 1).
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		for _, k := range keys {
			vals := q[k]
			sort.Strings(vals)
			for _, v := range vals {
				if sb.Len() > 0 {
					sb.WriteByte('&')
				}
				sb.WriteString(url.QueryEscape(k))
				sb.WriteByte('=')
				sb.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = sb.String()
	}

	path := u.Path
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	u.Path = path
	u.Fragment = ""

	return u.String(), nil
}

// Domain extracts the host component used as the fingerprint prefix, e.g.
// "www.example.com" from "https://www.example.com/a/b". It returns the
// full hostname as-is, not a registrable-domain reduction.
func Domain(normalizedURL string) string {
	u, err := url.Parse(normalizedURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}

// CanonicalActionsJSON re-marshals an arbitrary action list into a stable,
// deterministically ordered JSON encoding (Go's encoding/json already
// sorts map keys, so this only needs to round-trip through a generic
// value) so that two semantically identical action lists fingerprint the
// same way regardless of how the caller constructed them.
func CanonicalActionsJSON(actions any) ([]byte, error) {
	if actions == nil {
		return nil, nil
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Fingerprint derives the stable cache key for (normalized URL,
// extract-query, canonical actions JSON):
//
//	domain(url) + "-" + shortHash(normalize(url) + "?extract=" + extractQuery + "&actions=" + canonicalJson(actions))
//
// The hash is SHA-256 truncated to 16 hex characters, which is stable
// across processes and binary versions since it only depends on its
// string input.
func Fingerprint(normalizedURL, extractQuery string, canonicalActions []byte) string {
	h := sha256.New()
	h.Write([]byte(normalizedURL))
	h.Write([]byte("?extract="))
	h.Write([]byte(extractQuery))
	h.Write([]byte("&actions="))
	h.Write(canonicalActions)
	sum := hex.EncodeToString(h.Sum(nil))[:16]
	return Domain(normalizedURL) + "-" + sum
}
