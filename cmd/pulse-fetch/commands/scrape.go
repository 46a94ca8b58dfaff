package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulse-fetch/pulse-fetch/internal/output"
	"github.com/pulse-fetch/pulse-fetch/pkg/fetch"
	"github.com/pulse-fetch/pulse-fetch/pkg/scrape"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Fetch, clean, and optionally extract a single URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.String("extract", "", "ask the configured LLM provider a question about the page")
	flags.Bool("no-clean", false, "skip Markdown cleaning, return raw HTML")
	flags.Bool("force", false, "bypass the resource cache")
	flags.Int("max-chars", 0, "character window size (0 = default)")
	flags.Int("start-index", 0, "character offset to resume from")
	flags.String("result-handling", "saveAndReturn", "saveOnly, saveAndReturn, or returnOnly")
	flags.String("location-country", "", "ISO country code steering vendor-side rendering")
	flags.StringSlice("location-languages", nil, "Accept-Language values, most preferred first")
}

func runScrape(cmd *cobra.Command, args []string) error {
	app := appFrom(cmd.Context())

	flags := cmd.Flags()
	extractQuery, _ := flags.GetString("extract")
	noClean, _ := flags.GetBool("no-clean")
	force, _ := flags.GetBool("force")
	maxChars, _ := flags.GetInt("max-chars")
	startIndex, _ := flags.GetInt("start-index")
	resultHandling, _ := flags.GetString("result-handling")
	locationCountry, _ := flags.GetString("location-country")
	locationLanguages, _ := flags.GetStringSlice("location-languages")

	req := scrape.DefaultRequest(args[0])
	req.Extract = extractQuery
	req.CleanScrape = !noClean
	req.ForceRescrape = force
	req.StartIndex = startIndex
	req.ResultHandling = scrape.ResultHandling(resultHandling)
	if maxChars > 0 {
		req.MaxChars = maxChars
	}
	if locationCountry != "" || len(locationLanguages) > 0 {
		req.Location = &fetch.Location{Country: locationCountry, Languages: locationLanguages}
	}

	result, err := app.Scraper.Scrape(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	if result.IsError {
		fmt.Fprintf(os.Stderr, "pulse-fetch: %s\n", result.Message)
		os.Exit(1)
	}

	w := output.NewJSONWriter(os.Stdout, true, "  ")
	if err := w.Write(result); err != nil {
		return err
	}
	return w.Close()
}
