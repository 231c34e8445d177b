package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/insightwire/insightwire/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify configuration",
	Long: `View or modify InsightWire configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  insightwire config set scrape.default_limit 200
  insightwire config set session.lock_timeout_seconds 60

Valid keys:
  paths.storage_root              - Session and export storage directory
  session.lock_timeout_seconds    - Session lock acquisition timeout
  session.poll_interval_ms        - Worker poll interval
  session.stop_timeout_seconds    - Worker join timeout on stop
  session.idle_timeout_minutes    - Stop an idle worker after this long (0 = never)
  retry.max_attempts              - Attempts for lock-contended calls
  retry.base_delay_ms             - Linear backoff base delay
  scrape.default_limit            - Messages per channel
  scrape.channel_cache_ttl_minutes - Channel list cache lifetime
  logging.enabled                 - Write a JSON log file (true/false)
  logging.level                   - debug, info, warn, error
  tui.max_table_rows              - Max scraped rows the results view renders`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/insightwire/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("Current configuration:")
	fmt.Println()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("paths:")
	fmt.Printf("  storage_root: %s\n", cfg.Paths.StorageRoot)

	fmt.Println("session:")
	fmt.Printf("  lock_timeout_seconds: %d\n", cfg.Session.LockTimeoutSeconds)
	fmt.Printf("  poll_interval_ms: %d\n", cfg.Session.PollIntervalMs)
	fmt.Printf("  stop_timeout_seconds: %d\n", cfg.Session.StopTimeoutSeconds)
	fmt.Printf("  idle_timeout_minutes: %d\n", cfg.Session.IdleTimeoutMinutes)

	fmt.Println("retry:")
	fmt.Printf("  max_attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("  base_delay_ms: %d\n", cfg.Retry.BaseDelayMs)

	fmt.Println("scrape:")
	fmt.Printf("  default_limit: %d\n", cfg.Scrape.DefaultLimit)
	fmt.Printf("  channel_cache_ttl_minutes: %d\n", cfg.Scrape.ChannelCacheTTLMinutes)

	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)

	fmt.Println("tui:")
	fmt.Printf("  max_table_rows: %d\n", cfg.TUI.MaxTableRows)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	validKeys := map[string]string{
		"paths.storage_root":               "string",
		"session.lock_timeout_seconds":     "int",
		"session.poll_interval_ms":         "int",
		"session.stop_timeout_seconds":     "int",
		"session.idle_timeout_minutes":     "int",
		"retry.max_attempts":               "int",
		"retry.base_delay_ms":              "int",
		"scrape.default_limit":             "int",
		"scrape.channel_cache_ttl_minutes": "int",
		"logging.enabled":                  "bool",
		"logging.level":                    "string",
		"tui.max_table_rows":               "int",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'insightwire config set --help' to see valid keys", key)
	}

	var typedValue interface{}
	switch keyType {
	case "string":
		if key == "logging.level" && !config.IsValidLogLevel(value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'insightwire config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configContent := `# InsightWire configuration

# Storage paths
paths:
  # Session files, lock files, and CSV exports live under this directory
  storage_root: ~/.insightwire

# Session worker settings
session:
  # How long to wait for the session lock before giving up
  lock_timeout_seconds: 30
  # Worker poll interval in milliseconds
  poll_interval_ms: 100
  # How long to wait for the worker to wind down on stop
  stop_timeout_seconds: 5
  # Stop an idle worker after this many minutes (0 = never)
  idle_timeout_minutes: 0

# Retry policy for lock-contended calls
retry:
  max_attempts: 3
  # Linear backoff: attempt * base_delay_ms
  base_delay_ms: 1000

# Scraping defaults
scrape:
  # Messages fetched per channel
  default_limit: 100
  # How long the channel list stays cached in the UI
  channel_cache_ttl_minutes: 10

# Logging
logging:
  enabled: true
  # debug, info, warn, error
  level: info

# Terminal UI
tui:
  # Max scraped rows the results view renders
  max_table_rows: 500
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}
