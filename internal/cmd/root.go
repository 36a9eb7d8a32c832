// Package cmd provides the command-line interface for notion2md.
// It handles command parsing, configuration loading, and export execution.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/notion2md/internal/config"
	"github.com/masahif/notion2md/internal/crawler"
	"github.com/masahif/notion2md/internal/logging"
	"github.com/masahif/notion2md/internal/storage"
)

// Exit codes returned by ExitCode
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notion2md <start-url>",
	Short: "Export public Notion pages to Markdown",
	Long: `notion2md exports a published Notion page and every page reachable
from it to Markdown.

By default each page is written to its own directory mirroring the page
hierarchy. With --single, child pages are inlined into one document.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runExport,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with args and ctx, which cancels the export
// when done. Flags parsed by a previous call are reset first.
func Execute(ctx context.Context, args []string) error {
	if err := resetFlags(rootCmd); err != nil {
		return err
	}
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// resetFlags restores every flag of cmd to its default value, including the
// help and version flags cobra adds on first execution
func resetFlags(cmd *cobra.Command) error {
	var errs []error
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			errs = append(errs, sv.Replace(nil))
		} else {
			errs = append(errs, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to reset flags: %w", err)
	}
	return nil
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// ExitCode maps the result of Execute to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.DefaultConfig()

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./notion2md.yml)")

	// Configuration management flags
	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Export flags
	rootCmd.Flags().StringP("output", "o", defaults.OutputDir, "Output directory")
	rootCmd.Flags().BoolP("single", "s", false, "Inline child pages into a single Markdown file")
	rootCmd.Flags().IntP("limit", "l", defaults.Limit, "Stop after N pages (0=unlimited)")
	rootCmd.Flags().String("image-base-url", "", "Base URL of the image proxy (default: origin of the page URL)")

	// Fetch flags
	rootCmd.Flags().Float64P("delay", "d", defaults.RequestDelay, "Delay between page fetches in seconds")
	rootCmd.Flags().IntP("max-retries", "r", defaults.MaxRetries, "Fetch attempts per page")
	rootCmd.Flags().Float64("retry-delay", defaults.RetryDelay, "Seconds before the first retry, doubled per retry")
	rootCmd.Flags().DurationP("timeout", "t", defaults.RequestTimeout, "HTTP request timeout")
	rootCmd.Flags().StringP("user-agent", "u", defaults.UserAgent, "HTTP User-Agent header")
	rootCmd.Flags().StringSliceP("header", "H", []string{}, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")
	rootCmd.Flags().Bool("respect-robots", defaults.RespectRobots, "Honor robots.txt rules")

	// Journal and logging flags
	rootCmd.Flags().String("journal", "", "Path to SQLite export journal (disabled when empty)")
	rootCmd.Flags().String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	rootCmd.Flags().String("log-file", "", "Also write JSON logs to this file")

	if err := bindFlags(rootCmd); err != nil {
		// Non-critical for operation
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// bindFlags binds the command's flags to their configuration keys
func bindFlags(cmd *cobra.Command) error {
	binds := []struct {
		viperKey string
		flagName string
	}{
		{"output_dir", "output"},
		{"single_file", "single"},
		{"limit", "limit"},
		{"image_base_url", "image-base-url"},
		{"request_delay", "delay"},
		{"max_retries", "max-retries"},
		{"retry_delay", "retry-delay"},
		{"request_timeout", "timeout"},
		{"user_agent", "user-agent"},
		{"headers", "header"},
		{"respect_robots", "respect-robots"},
		{"journal_path", "journal"},
		{"log_level", "log-level"},
		{"log_file", "log-file"},
	}

	for _, bind := range binds {
		if err := viper.BindPFlag(bind.viperKey, cmd.Flags().Lookup(bind.flagName)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", bind.flagName, err)
		}
	}
	return nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("notion2md")
	}

	viper.SetEnvPrefix("N2M")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers viper values over the defaults. A positional start URL
// overrides start_url.
func loadConfig(args []string) (*config.ExportConfig, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(args) > 0 {
		cfg.StartURL = args[0]
	}
	return cfg, nil
}

func showCurrentConfig(w io.Writer, cfg *config.ExportConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current notion2md Configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./notion2md.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: N2M_\n\n")

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (N2M_ prefix)\n")
	fmt.Fprintf(w, "# 3. Configuration file (notion2md.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	if showConfig, _ := cmd.Flags().GetBool("show-config"); showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := config.ValidateStartURL(cfg.StartURL); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCloser, err := logging.SetDefault(logging.Config{
		Level:      logging.ParseLevel(cfg.LogLevel),
		FilePath:   cfg.LogFile,
		MaxSize:    logging.DefaultConfig().MaxSize,
		MaxBackups: logging.DefaultConfig().MaxBackups,
		Console:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	scheduler, closeJournal, err := initializeScheduler(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize exporter: %w", err)
	}
	defer closeJournal()
	defer func() { _ = scheduler.Close() }()

	return export(cmd.Context(), scheduler, cfg.StartURL, cmd.OutOrStdout())
}

// export runs exporter and prints its summary to w, also when the run was
// cancelled
func export(ctx context.Context, exporter crawler.Exporter, startURL string, w io.Writer) error {
	summary, err := exporter.Run(ctx, startURL)
	if summary != nil {
		printSummary(w, summary)
	}
	return err
}

// initializeScheduler creates a scheduler, with the export journal when
// one is configured. The returned func closes the journal.
func initializeScheduler(cfg *config.ExportConfig) (*crawler.Scheduler, func(), error) {
	var opts []crawler.Option
	closeJournal := func() {}

	if cfg.JournalPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
		journal, err := storage.NewSQLiteJournal(cfg.JournalPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open journal: %w", err)
		}
		opts = append(opts, crawler.WithJournal(journal))
		closeJournal = func() {
			if err := journal.Close(); err != nil {
				slog.Warn("Failed to close journal", "error", err)
			}
		}
	}

	scheduler, err := crawler.NewScheduler(cfg, opts...)
	if err != nil {
		closeJournal()
		return nil, nil, err
	}
	return scheduler, closeJournal, nil
}

func printSummary(w io.Writer, s *crawler.Summary) {
	fmt.Fprintf(w, "Export summary (%s mode)\n", s.Mode)
	fmt.Fprintf(w, "  Start URL:      %s\n", s.StartURL)
	fmt.Fprintf(w, "  Pages exported: %s\n", humanize.Comma(int64(s.PagesExported)))
	fmt.Fprintf(w, "  Pages skipped:  %s\n", humanize.Comma(int64(s.PagesSkipped)))
	fmt.Fprintf(w, "  Files written:  %s (%s)\n", humanize.Comma(int64(s.FilesWritten)), humanize.Bytes(uint64(s.BytesWritten)))
	fmt.Fprintf(w, "  Duration:       %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Failures:       %d\n", len(s.Failures))
	for _, f := range s.Failures {
		fmt.Fprintf(w, "    - [%s] %s: %s\n", f.Kind, f.URL, f.Message)
	}
}
