package strategy

import (
	"net/url"
	"regexp"
	"strings"
)

const wildcard = "*"

var hashLike = regexp.MustCompile(`^[0-9a-fA-F]{8,}$|^[0-9a-zA-Z_-]{16,}$`)

// PatternFor derives the glob-like URL pattern used to key a learned
// strategy: numeric and hash-like path segments become a wildcard marker.
func PatternFor(normalizedURL string) string {
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return normalizedURL
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if isNumeric(seg) || hashLike.MatchString(seg) {
			segments[i] = wildcard
		}
	}
	path := strings.Join(segments, "/")
	return u.Scheme + "://" + u.Host + "/" + path
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// matches reports whether pattern (as produced by PatternFor, or a glob
// over it) matches normalizedURL: scheme and host must match exactly, and
// each path segment must match literally or be a wildcard.
func matches(pattern, normalizedURL string) bool {
	pu, err := url.Parse(pattern)
	if err != nil {
		return false
	}
	uu, err := url.Parse(normalizedURL)
	if err != nil {
		return false
	}
	if pu.Scheme != uu.Scheme || pu.Host != uu.Host {
		return false
	}
	pSegs := splitPath(pu.Path)
	uSegs := splitPath(uu.Path)
	if len(pSegs) != len(uSegs) {
		return false
	}
	for i := range pSegs {
		if pSegs[i] == wildcard {
			continue
		}
		if pSegs[i] != uSegs[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}

// specificity counts non-wildcard path segments, used to pick the
// "longest-matching" (most specific) learned pattern.
func specificity(pattern string) int {
	u, err := url.Parse(pattern)
	if err != nil {
		return 0
	}
	n := 0
	for _, seg := range splitPath(u.Path) {
		if seg != wildcard && seg != "" {
			n++
		}
	}
	return n
}
