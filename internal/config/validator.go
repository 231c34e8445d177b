package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "session.lock_timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// IsValidLogLevel checks if the given level is valid
func IsValidLogLevel(level string) bool {
	return slices.Contains(ValidLogLevels(), strings.ToLower(level))
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSession()...)
	errors = append(errors, c.validateRetry()...)
	errors = append(errors, c.validateScrape()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTUI()...)

	return errors
}

func (c *Config) validateSession() []ValidationError {
	var errors []ValidationError

	if c.Session.LockTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "session.lock_timeout_seconds",
			Value:   c.Session.LockTimeoutSeconds,
			Message: "must be positive",
		})
	}
	if c.Session.PollIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "session.poll_interval_ms",
			Value:   c.Session.PollIntervalMs,
			Message: "must be positive",
		})
	}
	if c.Session.StopTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "session.stop_timeout_seconds",
			Value:   c.Session.StopTimeoutSeconds,
			Message: "must be positive",
		})
	}
	if c.Session.IdleTimeoutMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "session.idle_timeout_minutes",
			Value:   c.Session.IdleTimeoutMinutes,
			Message: "must be non-negative (0 disables idle shutdown)",
		})
	}

	return errors
}

func (c *Config) validateRetry() []ValidationError {
	var errors []ValidationError

	if c.Retry.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.max_attempts",
			Value:   c.Retry.MaxAttempts,
			Message: "must be at least 1",
		})
	}
	if c.Retry.BaseDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.base_delay_ms",
			Value:   c.Retry.BaseDelayMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateScrape() []ValidationError {
	var errors []ValidationError

	if c.Scrape.DefaultLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scrape.default_limit",
			Value:   c.Scrape.DefaultLimit,
			Message: "must be positive",
		})
	}
	if c.Scrape.ChannelCacheTTLMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "scrape.channel_cache_ttl_minutes",
			Value:   c.Scrape.ChannelCacheTTLMinutes,
			Message: "must be non-negative (0 disables caching)",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.MaxTableRows <= 0 {
		errors = append(errors, ValidationError{
			Field:   "tui.max_table_rows",
			Value:   c.TUI.MaxTableRows,
			Message: "must be positive",
		})
	}

	return errors
}
