package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulse-fetch/pulse-fetch/internal/output"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Start, poll, or cancel a multi-page crawl job",
}

var crawlStartCmd = &cobra.Command{
	Use:   "start <url>",
	Short: "Start a crawl job from a seed URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawlStart,
}

var crawlStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Poll a crawl job's status",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawlStatus,
}

var crawlCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running crawl job",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawlCancel,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.AddCommand(crawlStartCmd, crawlStatusCmd, crawlCancelCmd)

	crawlStartCmd.Flags().Int("limit", 1000, "upstream discovery bound (1-100000)")
	crawlStatusCmd.Flags().String("cursor", "", "pagination cursor from a previous status call")
}

func runCrawlStart(cmd *cobra.Command, args []string) error {
	app := appFrom(cmd.Context())
	limit, _ := cmd.Flags().GetInt("limit")

	jobID, jobURL, err := app.CrawlProxy.Start(cmd.Context(), args[0], limit)
	if err != nil {
		return fmt.Errorf("crawl start: %w", err)
	}

	w := output.NewJSONWriter(os.Stdout, true, "  ")
	if err := w.Write(map[string]string{"jobId": jobID, "jobUrl": jobURL}); err != nil {
		return err
	}
	return w.Close()
}

func runCrawlStatus(cmd *cobra.Command, args []string) error {
	app := appFrom(cmd.Context())
	cursor, _ := cmd.Flags().GetString("cursor")

	page, err := app.CrawlProxy.Status(cmd.Context(), args[0], cursor)
	if err != nil {
		return fmt.Errorf("crawl status: %w", err)
	}

	w := output.NewJSONWriter(os.Stdout, true, "  ")
	if err := w.Write(page); err != nil {
		return err
	}
	return w.Close()
}

func runCrawlCancel(cmd *cobra.Command, args []string) error {
	app := appFrom(cmd.Context())

	snap, err := app.CrawlProxy.Cancel(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("crawl cancel: %w", err)
	}

	w := output.NewJSONWriter(os.Stdout, true, "  ")
	if err := w.Write(snap); err != nil {
		return err
	}
	return w.Close()
}
