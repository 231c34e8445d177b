package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/insightwire/insightwire/internal/config"
	"github.com/insightwire/insightwire/internal/logging"
	"github.com/insightwire/insightwire/internal/session"
	"github.com/insightwire/insightwire/internal/telegram"
)

var rootCmd = &cobra.Command{
	Use:   "insightwire",
	Short: "Telegram channel scraper with exclusive session ownership",
	Long: `InsightWire drives an authenticated Telegram session from a single
dedicated worker, so session storage is never touched concurrently.
Commands queue up behind one another and results come back in order.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var demoMode bool

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/insightwire/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&demoMode, "demo", false, "run against an in-memory provider with sample channels")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/insightwire")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("INSIGHTWIRE")
	// INSIGHTWIRE_SESSION_LOCK_TIMEOUT_SECONDS for session.lock_timeout_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.ReadInConfig()
}

// newLogger builds the file logger from config, or a no-op one when logging
// is disabled.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLogger(cfg.Paths.ResolveStorageRoot(), cfg.Logging.Level)
	if err != nil {
		return logging.NopLogger()
	}
	return logger
}

// newManager wires a session manager from config. In demo mode the provider
// is an in-memory fake seeded with sample channels.
func newManager(cfg *config.Config, logger *logging.Logger) *session.Manager {
	factory := telegram.DefaultFactory
	if demoMode {
		factory = telegram.FakeFactory(demoProvider())
	}
	return session.NewManager(session.Config{
		StorageRoot:  cfg.Paths.ResolveStorageRoot(),
		Factory:      factory,
		LockTimeout:  cfg.Session.LockTimeout(),
		PollInterval: cfg.Session.PollInterval(),
		StopTimeout:  cfg.Session.StopTimeout(),
		IdleTimeout:  cfg.Session.IdleTimeout(),
		Logger:       logger,
	})
}

func demoProvider() *telegram.Fake {
	f := telegram.NewFake()
	f.Authorized = true
	now := time.Now()
	f.AddDialog(telegram.Dialog{ID: 1, Name: "daily_wire", Kind: telegram.KindChannel},
		telegram.Message{ID: 101, Date: now.Add(-time.Hour), Text: "Markets opened higher this morning.", Views: 1520, Forwards: 34},
		telegram.Message{ID: 102, Date: now.Add(-2 * time.Hour), Text: "Weather alert issued for the coast.", Views: 980, Forwards: 12},
	)
	f.AddDialog(telegram.Dialog{ID: 2, Name: "tech_digest", Kind: telegram.KindChannel},
		telegram.Message{ID: 201, Date: now.Add(-30 * time.Minute), Text: "New kernel release lands today.", Views: 4210, Forwards: 87},
	)
	f.AddDialog(telegram.Dialog{ID: 3, Name: "friends", Kind: telegram.KindGroup},
		telegram.Message{ID: 301, Date: now, Text: "lunch?", Views: 2},
	)
	return f
}
