package cmd

import (
	"github.com/spf13/cobra"

	"github.com/insightwire/insightwire/internal/config"
	"github.com/insightwire/insightwire/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive scraper",
	Long: `Launch the interactive UI: open a session, sign in if needed, pick
channels, and browse or export the scraped messages.

With --demo the UI runs against an in-memory provider with sample data,
no Telegram credentials required.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Close()

	mgr := newManager(cfg, logger)
	app := tui.New(mgr, cfg, logger)
	return app.Run()
}
