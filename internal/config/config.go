// Package config provides configuration management for the exporter.
// It defines the export settings, their defaults and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent mimics a desktop browser; published pages serve their
// prerendered payload to browser clients.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ExportConfig holds exporter configuration
type ExportConfig struct {
	// Source and destination
	StartURL  string `mapstructure:"start_url" yaml:"start_url"`   // Published page to start from
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"` // Root directory for exported files

	// Fetching
	RequestDelay   float64       `mapstructure:"request_delay" yaml:"request_delay"`     // Seconds between page fetches
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries"`         // Fetch attempts per page
	RetryDelay     float64       `mapstructure:"retry_delay" yaml:"retry_delay"`         // Seconds before the first retry, doubled per retry
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	Headers        []string      `mapstructure:"headers" yaml:"headers"`                 // Extra headers in "Name: Value" form
	RespectRobots  bool          `mapstructure:"respect_robots" yaml:"respect_robots"`   // Whether to honor robots.txt

	// Export behavior
	SingleFile   bool   `mapstructure:"single_file" yaml:"single_file"`       // Inline child pages into one document
	Limit        int    `mapstructure:"limit" yaml:"limit"`                   // Stop after N pages (0=unlimited)
	ImageBaseURL string `mapstructure:"image_base_url" yaml:"image_base_url"` // Image proxy base (default: page origin)

	// Journal and logging
	JournalPath string `mapstructure:"journal_path" yaml:"journal_path"` // SQLite export journal, empty disables it
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`       // debug, info, warn, error
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`         // Optional JSON log file
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *ExportConfig {
	return &ExportConfig{
		OutputDir:      "./notion_export",
		RequestDelay:   1.0,
		MaxRetries:     3,
		RetryDelay:     2.0,
		RequestTimeout: 30 * time.Second,
		UserAgent:      DefaultUserAgent,
		RespectRobots:  false,
		Limit:          0, // unlimited
		LogLevel:       "info",
	}
}

// Validate checks if the configuration is valid. The start URL is checked
// separately by ValidateStartURL.
func (c *ExportConfig) Validate() error {
	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}

	if c.RequestDelay < 0 || c.RetryDelay < 0 {
		return ErrInvalidDelay
	}

	if c.MaxRetries < 1 {
		return ErrInvalidRetries
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Limit < 0 {
		return ErrInvalidLimit
	}

	if c.ImageBaseURL != "" {
		if err := ValidateStartURL(c.ImageBaseURL); err != nil {
			return fmt.Errorf("image_base_url: %w", err)
		}
	}

	if _, err := c.ParseHeaders(); err != nil {
		return err
	}

	return nil
}

// Delay returns RequestDelay as a duration.
func (c *ExportConfig) Delay() time.Duration {
	return seconds(c.RequestDelay)
}

// RetryBackoff returns RetryDelay as a duration.
func (c *ExportConfig) RetryBackoff() time.Duration {
	return seconds(c.RetryDelay)
}

// ParseHeaders splits the "Name: Value" header list into a map
func (c *ExportConfig) ParseHeaders() (map[string]string, error) {
	headers := make(map[string]string, len(c.Headers))
	for _, header := range c.Headers {
		colonIndex := strings.Index(header, ":")
		if colonIndex <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
		}

		key := strings.TrimSpace(header[:colonIndex])
		value := strings.TrimSpace(header[colonIndex+1:])
		if key == "" || value == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
		}

		headers[key] = value
	}
	return headers, nil
}

// ValidateStartURL checks that raw is an absolute http(s) URL
func ValidateStartURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
