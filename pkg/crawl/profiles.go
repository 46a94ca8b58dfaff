package crawl

import (
	"net/url"
	"strings"
)

// profile is a per-host crawl filter default, e.g. a docs host selecting
// only one language prefix.
type profile struct {
	includePaths []string
	excludePaths []string
	depth        int
}

// hostProfiles maps a small set of known hosts to a curated include/exclude
// set. This table is illustrative rather than exhaustive — new hosts are
// added here as they're observed to need bespoke filtering.
var hostProfiles = map[string]profile{
	"docs.example.com": {
		includePaths: []string{"/en/"},
		depth:        4,
	},
}

// universalExcludePaths is the baseline applied to any host without a
// known profile: common non-content paths not worth a crawl budget.
var universalExcludePaths = []string{
	"/login", "/signin", "/signup", "/cart", "/checkout",
	"/privacy", "/terms", "/cookie", "/legal",
}

// universalDepth is the discovery depth used when no host profile applies.
const universalDepth = 3

// BuildConfig produces the upstream request config for a seed URL: a
// host-specific filter set if the host matches a known profile,
// otherwise a universal baseline; a host-specific discovery depth
// default (>= 3) when known.
func BuildConfig(seedURL string, limit int) Config {
	cfg := Config{URL: seedURL, Limit: limit}

	host := hostOf(seedURL)
	if p, ok := hostProfiles[host]; ok {
		cfg.IncludePaths = p.includePaths
		cfg.ExcludePaths = p.excludePaths
		cfg.MaxDiscoveryDepth = p.depth
		return cfg
	}

	cfg.ExcludePaths = universalExcludePaths
	cfg.MaxDiscoveryDepth = universalDepth
	return cfg
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
