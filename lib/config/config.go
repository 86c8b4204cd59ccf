// Package config defines the explicit configuration struct for the service.
// It is constructed once at startup (from flags and environment variables)
// and passed into each component's constructor - there is no hidden
// process-wide settings lookup.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all configuration parameters for the merge pipeline service.
type Config struct {
	// HTTP api settings
	Endpoint string

	// Store connection string ("mem://" or a SQLite path/DSN)
	StoreDSN string

	// Remote Data B source
	DataBURL string

	// Pipeline parameters
	FetchInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration

	// Runtime parameters
	Workers int

	// Logging configuration
	LogLevel string
}

// Validate checks that every required parameter is set and plausible.
// The serve command treats any returned error as a fatal startup error.
func (c *Config) Validate() error {
	var missing []string

	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.StoreDSN == "" {
		missing = append(missing, "db")
	}
	if c.DataBURL == "" {
		missing = append(missing, "data-b-url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.FetchInterval <= 0 {
		return fmt.Errorf("fetch-interval must be greater than zero, got %s", c.FetchInterval)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than zero, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry-delay must not be negative, got %s", c.RetryDelay)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}

	return nil
}

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("HTTP Server")
	addField("Endpoint", c.Endpoint)

	addSection("Store")
	addField("DSN", c.StoreDSN)

	addSection("Pipeline")
	addField("Data B URL", c.DataBURL)
	addField("Fetch Interval", c.FetchInterval.String())
	addField("Max Retries", fmt.Sprintf("%d", c.MaxRetries))
	addField("Retry Delay", c.RetryDelay.String())

	addSection("Runtime")
	addField("Workers", fmt.Sprintf("%d", c.Workers))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
