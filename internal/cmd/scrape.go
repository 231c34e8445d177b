package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/insightwire/insightwire/internal/config"
	"github.com/insightwire/insightwire/internal/retry"
	"github.com/insightwire/insightwire/internal/session"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [channel...]",
	Short: "Scrape messages from channels",
	Long: `Scrape recent messages from the named channels and print them as CSV.

With no channel arguments, all channels visible to the session are scraped,
optionally narrowed with --match. Use --output to write to a file instead
of stdout.`,
	RunE: runScrape,
}

var (
	scrapeSession string
	scrapeMatch   string
	scrapeLimit   int
	scrapeOutput  string
)

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&scrapeSession, "session", "s", "main", "session name under the storage root")
	scrapeCmd.Flags().StringVarP(&scrapeMatch, "match", "m", "", "glob filter for channel names (e.g. 'news*')")
	scrapeCmd.Flags().IntVarP(&scrapeLimit, "limit", "l", 0, "messages per channel (0 uses scrape.default_limit)")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "", "write CSV to this file instead of stdout")
	scrapeCmd.Flags().String("api-id", "", "Telegram API ID")
	scrapeCmd.Flags().String("api-hash", "", "Telegram API hash")
	scrapeCmd.Flags().String("phone", "", "account phone number")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Close()

	mgr := newManager(cfg, logger)
	defer mgr.Stop()

	apiID, _ := cmd.Flags().GetString("api-id")
	apiHash, _ := cmd.Flags().GetString("api-hash")
	phone, _ := cmd.Flags().GetString("phone")

	caller := retry.NewCaller(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay(), logger)
	ok, err := retry.Do(caller, func() (bool, error) {
		return mgr.Connect(scrapeSession, apiID, apiHash, phone)
	})
	if err != nil {
		return fmt.Errorf("failed to open session %q: %w", scrapeSession, err)
	}
	if !ok {
		return fmt.Errorf("could not open session %q", scrapeSession)
	}

	targets := args
	if len(targets) == 0 {
		channels, err := mgr.ListChannels()
		if err != nil {
			return err
		}
		targets, err = session.MatchChannels(channels, scrapeMatch)
		if err != nil {
			return fmt.Errorf("bad --match pattern: %w", err)
		}
	}
	if len(targets) == 0 {
		return fmt.Errorf("no channels to scrape")
	}

	limit := scrapeLimit
	if limit <= 0 {
		limit = cfg.Scrape.DefaultLimit
	}

	table, err := retry.Do(caller, func() (session.Table, error) {
		return mgr.FetchChannelData(targets, limit)
	})
	if err != nil {
		return err
	}

	out := os.Stdout
	if scrapeOutput != "" {
		f, err := os.Create(scrapeOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := table.WriteCSV(out); err != nil {
		return err
	}
	if scrapeOutput != "" {
		fmt.Fprintf(os.Stderr, "wrote %d rows to %s\n", table.Len(), scrapeOutput)
	}
	return nil
}
