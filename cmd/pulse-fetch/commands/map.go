package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulse-fetch/pulse-fetch/internal/output"
	"github.com/pulse-fetch/pulse-fetch/pkg/discover"
	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
	"github.com/pulse-fetch/pulse-fetch/pkg/scrape"
)

var mapCmd = &cobra.Command{
	Use:   "map <url>",
	Short: "Enumerate URLs discoverable from a seed page",
	Args:  cobra.ExactArgs(1),
	RunE:  runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)

	flags := mapCmd.Flags()
	flags.String("search", "", "keep only links whose URL or title contains this substring")
	flags.Int("limit", discover.DefaultLimit, "max links to collect from the sitemap and the seed page combined")
	flags.String("sitemap", "include", "skip, include, or only")
	flags.Bool("include-subdomains", false, "allow links on subdomains of the seed host")
	flags.Bool("ignore-query-parameters", false, "treat URLs that differ only by query string as duplicates")
	flags.Int("start-index", 0, "pagination offset into the discovered link set")
	flags.Int("max-results", 0, "max links per page (0 = 200; values above the configured cap are capped)")
	flags.String("result-handling", "saveAndReturn", "saveOnly, saveAndReturn, or returnOnly")
	flags.String("location-country", "", "ISO country code steering vendor-side rendering")
	flags.StringSlice("location-languages", nil, "Accept-Language values, most preferred first")
}

func runMap(cmd *cobra.Command, args []string) error {
	app := appFrom(cmd.Context())
	flags := cmd.Flags()

	search, _ := flags.GetString("search")
	limit, _ := flags.GetInt("limit")
	sitemapFlag, _ := flags.GetString("sitemap")
	includeSubdomains, _ := flags.GetBool("include-subdomains")
	ignoreQueryParameters, _ := flags.GetBool("ignore-query-parameters")
	startIndex, _ := flags.GetInt("start-index")
	maxResults, _ := flags.GetInt("max-results")
	resultHandling, _ := flags.GetString("result-handling")
	locationCountry, _ := flags.GetString("location-country")
	locationLanguages, _ := flags.GetStringSlice("location-languages")

	sitemapMode, err := parseSitemapMode(sitemapFlag)
	if err != nil {
		return err
	}

	opts := discover.Options{
		URL:                   args[0],
		Search:                search,
		Limit:                 limit,
		Sitemap:               sitemapMode,
		IncludeSubdomains:     includeSubdomains,
		IgnoreQueryParameters: ignoreQueryParameters,
		StartIndex:            startIndex,
		MaxResults:            maxResults,
		ResultHandling:        scrape.ResultHandling(resultHandling),
	}
	if locationCountry != "" || len(locationLanguages) > 0 {
		opts.Location = &fetch.Location{Country: locationCountry, Languages: locationLanguages}
	}

	result, err := app.Discoverer.Map(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("map: %w", err)
	}

	w := output.NewJSONWriter(os.Stdout, true, "  ")
	if err := w.Write(result); err != nil {
		return err
	}
	return w.Close()
}

func parseSitemapMode(raw string) (discover.SitemapMode, error) {
	switch raw {
	case "", "include":
		return discover.SitemapInclude, nil
	case "skip":
		return discover.SitemapSkip, nil
	case "only":
		return discover.SitemapOnly, nil
	default:
		return discover.SitemapInclude, fmt.Errorf("invalid --sitemap value %q: want skip, include, or only", raw)
	}
}
