package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/masahif/notion2md/internal/config"
	"github.com/masahif/notion2md/internal/crawler"
	"github.com/masahif/notion2md/internal/notion/notiontest"
	"github.com/masahif/notion2md/internal/storage"
)

// resetViper restores the flag bindings lost by viper.Reset
func resetViper(t *testing.T) {
	t.Helper()
	cfgFile = ""
	viper.Reset()
	if err := bindFlags(rootCmd); err != nil {
		t.Fatalf("Failed to bind flags: %v", err)
	}
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "2023-12-01T10:00:00Z")

	expected := "1.2.3 (built 2023-12-01T10:00:00Z)"
	if rootCmd.Version != expected {
		t.Errorf("Expected version %s, got %s", expected, rootCmd.Version)
	}
}

func TestRootCmd(t *testing.T) {
	if rootCmd.Use != "notion2md <start-url>" {
		t.Errorf("Expected use 'notion2md <start-url>', got %s", rootCmd.Use)
	}
	if rootCmd.RunE == nil {
		t.Error("RunE should be set to runExport")
	}

	for _, name := range []string{"output", "delay", "max-retries", "single", "journal", "show-config"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("Flag --%s is not defined", name)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, ExitOK},
		{"interrupted", context.Canceled, ExitInterrupted},
		{"wrapped interrupt", fmt.Errorf("export stopped: %w", context.Canceled), ExitInterrupted},
		{"invalid url", fmt.Errorf("%w: missing host", config.ErrInvalidURL), ExitFailure},
		{"other failure", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.expected {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestInitConfig(t *testing.T) {
	t.Cleanup(func() { resetViper(t) })

	configFile := filepath.Join(t.TempDir(), "notion2md.yml")
	configContent := `
output_dir: ./exported
request_delay: 0.5
max_retries: 5
single_file: true
headers:
  - "Accept-Language: en"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfgFile = configFile
	initConfig()

	if viper.ConfigFileUsed() != configFile {
		t.Errorf("Expected config file %s, got %s", configFile, viper.ConfigFileUsed())
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.OutputDir != "./exported" {
		t.Errorf("OutputDir = %q, want ./exported", cfg.OutputDir)
	}
	if cfg.RequestDelay != 0.5 || cfg.MaxRetries != 5 || !cfg.SingleFile {
		t.Errorf("Config file values not applied: %+v", cfg)
	}
	if len(cfg.Headers) != 1 || cfg.Headers[0] != "Accept-Language: en" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	// Untouched keys keep their defaults
	if cfg.RequestTimeout != 30*time.Second || cfg.UserAgent != config.DefaultUserAgent {
		t.Errorf("Defaults lost: timeout=%v user_agent=%q", cfg.RequestTimeout, cfg.UserAgent)
	}
}

func TestLoadConfigEnvAndArgs(t *testing.T) {
	t.Cleanup(func() { resetViper(t) })
	t.Setenv("N2M_MAX_RETRIES", "7")
	t.Setenv("N2M_START_URL", "https://acme.notion.site/From-Env-a")

	viper.SetEnvPrefix("N2M")
	viper.AutomaticEnv()
	if err := viper.BindEnv("start_url"); err != nil {
		t.Fatalf("BindEnv failed: %v", err)
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7 from environment", cfg.MaxRetries)
	}
	if cfg.StartURL != "https://acme.notion.site/From-Env-a" {
		t.Errorf("StartURL = %q, want value from environment", cfg.StartURL)
	}

	cfg, err = loadConfig([]string{"https://acme.notion.site/From-Args-b"})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.StartURL != "https://acme.notion.site/From-Args-b" {
		t.Errorf("Positional start URL should win, got %q", cfg.StartURL)
	}
}

func TestShowCurrentConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := showCurrentConfig(&buf, config.DefaultConfig()); err != nil {
		t.Fatalf("showCurrentConfig failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"output_dir: ./notion_export", "max_retries: 3", "N2M_", "notion2md.yml"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}

	if err := showCurrentConfig(&buf, nil); err == nil {
		t.Error("Expected error for nil configuration")
	}
}

func TestExecuteInvalidURL(t *testing.T) {
	err := Execute(context.Background(), []string{"notion.site/no-scheme"})
	if !errors.Is(err, config.ErrInvalidURL) {
		t.Fatalf("Expected ErrInvalidURL, got %v", err)
	}
	if ExitCode(err) != ExitFailure {
		t.Errorf("Expected exit code %d, got %d", ExitFailure, ExitCode(err))
	}
}

func TestExecuteExport(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(previous)
		rootCmd.SetOut(nil)
	})

	pages := map[string][]byte{
		"/home-h":  notiontest.NewPage("h", "Home", "p", "c").Titled("p", "text", "Welcome").Subpage("c", "Child").HTML(),
		"/child-c": notiontest.NewPage("c", "Child", "q").Titled("q", "text", "Nested").HTML(),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	defer server.Close()

	outDir := t.TempDir()
	journalPath := filepath.Join(t.TempDir(), "journal", "export.db")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	args := []string{
		server.URL + "/home-h",
		"--output", outDir,
		"--delay", "0",
		"--max-retries", "1",
		"--journal", journalPath,
		"--log-level", "error",
	}

	if err := Execute(context.Background(), args); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	home, err := os.ReadFile(filepath.Join(outDir, "home", "home.md"))
	if err != nil {
		t.Fatalf("Failed to read exported page: %v", err)
	}
	if string(home) != "# Home\n\nWelcome\n\n[Child](./child/child.md)" {
		t.Errorf("Unexpected exported page: %q", home)
	}
	if _, err := os.Stat(filepath.Join(outDir, "home", "child", "child.md")); err != nil {
		t.Errorf("Child page not exported: %v", err)
	}

	summary := out.String()
	if !strings.Contains(summary, "Pages exported: 2") || !strings.Contains(summary, "Failures:       0") {
		t.Errorf("Unexpected summary output:\n%s", summary)
	}

	journal, err := storage.NewSQLiteJournal(journalPath)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	defer journal.Close()

	run, err := journal.GetRun(1)
	if err != nil {
		t.Fatalf("Failed to read run: %v", err)
	}
	if run.Status != "completed" || run.PagesExported != 2 || run.Mode != "multi" {
		t.Errorf("Unexpected journal run: %+v", run)
	}
	records, err := journal.ListPages(1)
	if err != nil {
		t.Fatalf("Failed to list pages: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 journal records, got %d", len(records))
	}
}

func TestExecuteResetsFlags(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(previous)
		rootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	SetVersionInfo("1.2.3", "2023-12-01T10:00:00Z")

	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("Execute --version failed: %v", err)
	}
	if !strings.Contains(out.String(), "1.2.3") {
		t.Errorf("Expected version output, got %q", out.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Execute(ctx, []string{
		"https://acme.notion.site/Home-0123456789abcdef0123456789abcdef",
		"--output", t.TempDir(),
		"--single",
		"-H", "X-Test: 1",
		"--log-level", "error",
	})
	if ExitCode(err) != ExitInterrupted {
		t.Fatalf("Expected exit code %d, got %d (err: %v)", ExitInterrupted, ExitCode(err), err)
	}

	if err := resetFlags(rootCmd); err != nil {
		t.Fatalf("resetFlags failed: %v", err)
	}
	for _, name := range []string{"version", "single", "header", "output"} {
		if f := rootCmd.Flags().Lookup(name); f == nil || f.Changed {
			t.Errorf("Flag --%s still marked as changed", name)
		}
	}
	if single, _ := rootCmd.Flags().GetBool("single"); single {
		t.Error("--single kept its value after reset")
	}
	if headers, _ := rootCmd.Flags().GetStringSlice("header"); len(headers) != 0 {
		t.Errorf("--header kept %v after reset", headers)
	}
}

type stubExporter struct {
	summary *crawler.Summary
	err     error
	gotURL  string
}

func (e *stubExporter) Run(ctx context.Context, startURL string) (*crawler.Summary, error) {
	e.gotURL = startURL
	return e.summary, e.err
}

func TestExportPrintsSummaryOnCancel(t *testing.T) {
	exporter := &stubExporter{
		summary: &crawler.Summary{StartURL: "https://acme.notion.site/Home-a", Mode: "multi", PagesExported: 1234},
		err:     context.Canceled,
	}

	var out bytes.Buffer
	err := export(context.Background(), exporter, "https://acme.notion.site/Home-a", &out)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if exporter.gotURL != "https://acme.notion.site/Home-a" {
		t.Errorf("Exporter ran with %q", exporter.gotURL)
	}
	if !strings.Contains(out.String(), "Pages exported: 1,234") {
		t.Errorf("Summary not printed:\n%s", out.String())
	}

	out.Reset()
	exporter.summary = nil
	exporter.err = config.ErrInvalidURL
	if err := export(context.Background(), exporter, "bad", &out); !errors.Is(err, config.ErrInvalidURL) {
		t.Errorf("Expected ErrInvalidURL, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected no output without a summary, got %q", out.String())
	}
}
