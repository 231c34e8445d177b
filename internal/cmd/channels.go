package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insightwire/insightwire/internal/config"
	"github.com/insightwire/insightwire/internal/retry"
	"github.com/insightwire/insightwire/internal/session"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List channels visible to a session",
	Long: `List the channel dialogs visible to an already-authorized session.

The session must have completed interactive sign-in at least once (run
'insightwire tui' first). Unauthorized sessions produce an empty list.`,
	RunE: runChannels,
}

var (
	channelsSession string
	channelsMatch   string
)

func init() {
	rootCmd.AddCommand(channelsCmd)

	channelsCmd.Flags().StringVarP(&channelsSession, "session", "s", "main", "session name under the storage root")
	channelsCmd.Flags().StringVarP(&channelsMatch, "match", "m", "", "glob filter for channel names (e.g. 'news*')")
	channelsCmd.Flags().String("api-id", "", "Telegram API ID")
	channelsCmd.Flags().String("api-hash", "", "Telegram API hash")
	channelsCmd.Flags().String("phone", "", "account phone number")
}

func runChannels(cmd *cobra.Command, args []string) error {
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
		return mgr.Connect(channelsSession, apiID, apiHash, phone)
	})
	if err != nil {
		return fmt.Errorf("failed to open session %q: %w", channelsSession, err)
	}
	if !ok {
		return fmt.Errorf("could not open session %q", channelsSession)
	}

	channels, err := mgr.ListChannels()
	if err != nil {
		return err
	}
	channels, err = session.MatchChannels(channels, channelsMatch)
	if err != nil {
		return fmt.Errorf("bad --match pattern: %w", err)
	}

	if len(channels) == 0 {
		fmt.Println("No channels found. Is the session signed in?")
		return nil
	}
	for _, name := range channels {
		fmt.Println(name)
	}
	return nil
}
