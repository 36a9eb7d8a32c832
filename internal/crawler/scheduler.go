// Package crawler provides the page-by-page export crawl.
// It fetches published pages one at a time with pacing and retries,
// renders them, and mirrors the page hierarchy as Markdown files.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/masahif/notion2md/internal/config"
	"github.com/masahif/notion2md/internal/notion"
	"github.com/masahif/notion2md/internal/output"
	"github.com/masahif/notion2md/internal/parser"
)

// UntitledPage is the heading used for pages without a title
const UntitledPage = "Untitled"

var _ Exporter = (*Scheduler)(nil)

// Scheduler implements Exporter. It is not safe for concurrent use; each
// Run starts with a fresh visited set and page registry.
type Scheduler struct {
	config      *config.ExportConfig
	fetcher     Fetcher
	parser      PayloadParser
	writer      DocumentWriter
	journal     Journal
	rateLimiter *RateLimiter
	robots      *RobotsParser
	clients     []*HTTPClient // clients built here, closed by Close

	// Per-run state
	mode        notion.Mode
	baseURL     string // final URL of the start page
	runID       int64
	registry    *notion.PageRegistry
	visited     map[string]bool
	summary     *Summary
	limitLogged bool
}

type pageVisit struct {
	content *notion.PageContent
	record  *PageRecord
	baseURL string // URL child page URLs are derived from
}

// NewScheduler creates a scheduler for cfg. Collaborators not supplied
// through opts are built from cfg.
func NewScheduler(cfg *config.ExportConfig, opts ...Option) (*Scheduler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scheduler{
		config:      cfg,
		fetcher:     o.fetcher,
		parser:      o.parser,
		writer:      o.writer,
		journal:     o.journal,
		robots:      o.robots,
		rateLimiter: NewRateLimiter(cfg.Delay()),
		mode:        notion.ModeMultiFile,
	}
	if cfg.SingleFile {
		s.mode = notion.ModeSingleFile
	}

	if s.fetcher == nil {
		headers, err := cfg.ParseHeaders()
		if err != nil {
			return nil, err
		}
		httpClient := NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout)
		httpClient.SetRetryPolicy(cfg.MaxRetries, cfg.RetryBackoff())
		if len(headers) > 0 {
			httpClient.SetCustomHeaders(headers)
			slog.Info("Set custom headers", "count", len(headers))
		}
		s.fetcher = httpClient
		s.clients = append(s.clients, httpClient)
	}

	if s.robots == nil && cfg.RespectRobots {
		robotsClient := NewHTTPClient(cfg.UserAgent, cfg.RequestTimeout)
		s.robots = NewRobotsParser(robotsClient, cfg.UserAgent)
		s.clients = append(s.clients, robotsClient)
	}

	if s.parser == nil {
		s.parser = parser.NewPayloadParser()
	}
	if s.writer == nil {
		s.writer = output.NewOSWriter()
	}
	if s.journal == nil {
		s.journal = NopJournal{}
	}

	return s, nil
}

// Run exports startURL and everything reachable from it. Page-level
// failures are collected in the summary. The returned error is non-nil
// only for an invalid start URL or a cancelled ctx; the summary is still
// returned on cancellation.
func (s *Scheduler) Run(ctx context.Context, startURL string) (*Summary, error) {
	if err := config.ValidateStartURL(startURL); err != nil {
		return nil, err
	}
	s.reset(startURL)

	slog.Info("Starting export", "url", startURL, "mode", s.mode.String(), "output", s.config.OutputDir)

	runID, err := s.journal.StartRun(startURL, s.mode.String())
	if err != nil {
		slog.Warn("Failed to start journal run", "error", err)
	}
	s.runID = runID

	if s.mode == notion.ModeSingleFile {
		s.exportSingle(ctx, startURL)
	} else {
		s.exportTree(ctx, startURL, "", s.config.OutputDir)
	}

	summary := s.summary
	summary.Duration = time.Since(summary.StartTime)
	if err := s.journal.FinishRun(s.runID, summary); err != nil {
		slog.Warn("Failed to finish journal run", "error", err)
	}

	if err := ctx.Err(); err != nil {
		slog.Warn("Export cancelled", "pages", summary.PagesExported, "duration", summary.Duration)
		return summary, err
	}

	slog.Info("Export completed", "pages", summary.PagesExported, "files", summary.FilesWritten,
		"skipped", summary.PagesSkipped, "failures", len(summary.Failures), "pages_seen", s.registry.Len(),
		"duration", summary.Duration)
	return summary, nil
}

// Close releases the HTTP clients the scheduler created
func (s *Scheduler) Close() error {
	for _, c := range s.clients {
		c.Close()
	}
	return nil
}

func (s *Scheduler) reset(startURL string) {
	s.baseURL = ""
	s.runID = 0
	s.registry = notion.NewPageRegistry()
	s.visited = make(map[string]bool)
	s.limitLogged = false
	s.summary = &Summary{
		StartURL:  startURL,
		Mode:      s.mode.String(),
		StartTime: time.Now(),
	}
}

// exportTree writes the page at pageURL into its own directory under
// parentDir and recurses into its child pages.
func (s *Scheduler) exportTree(ctx context.Context, pageURL, parentID, parentDir string) {
	v := s.visit(ctx, pageURL, parentID, nil)
	if v == nil {
		return
	}

	title := displayTitle(v.content.Title)
	slug := notion.Slugify(title)
	dir := filepath.Join(parentDir, slug)

	s.transition(v.record, StatePersisting)
	ok := s.persist(v.record, filepath.Join(dir, slug+".md"), "# "+title+"\n\n"+v.content.Content)

	if len(v.content.Subpages) > 0 {
		s.transition(v.record, StateRecursing)
	}
	for _, id := range v.content.Subpages {
		if ctx.Err() != nil {
			break
		}
		childURL, err := s.subpageURL(v.baseURL, id)
		if err != nil {
			slog.Warn("Skipping subpage", "parent", v.content.ID, "page_id", id, "error", err)
			continue
		}
		s.exportTree(ctx, childURL, v.content.ID, dir)
	}

	if ok {
		s.finish(v.record)
	}
}

// exportSingle writes the start page, with its child pages inlined, into
// one file directly under the output directory.
func (s *Scheduler) exportSingle(ctx context.Context, startURL string) {
	v := s.visit(ctx, startURL, "", s)
	if v == nil {
		return
	}

	title := displayTitle(v.content.Title)
	path := filepath.Join(s.config.OutputDir, notion.Slugify(title)+".md")

	s.transition(v.record, StatePersisting)
	if s.persist(v.record, path, "# "+title+"\n\n"+v.content.Content) {
		s.finish(v.record)
	}
}

// InlinePage fetches a child page during single-file extraction and
// returns its body. Pages nested inside it are linked, not inlined.
func (s *Scheduler) InlinePage(ctx context.Context, pageID, title string) (string, bool) {
	childURL, err := notion.SubpageURL(s.baseURL, title, pageID)
	if err != nil {
		slog.Warn("Skipping subpage", "page_id", pageID, "error", err)
		return "", false
	}

	var parentID string
	if ref, ok := s.registry.Lookup(pageID); ok {
		parentID = ref.ParentID
	}

	v := s.visit(ctx, childURL, parentID, nil)
	if v == nil {
		return "", false
	}

	s.transition(v.record, StateInlining)
	s.finish(v.record)
	return v.content.Content, true
}

// visit takes one page through fetching and extraction. It returns nil
// when the page was already visited, the page limit is reached, the page
// failed, or ctx is done.
func (s *Scheduler) visit(ctx context.Context, pageURL, parentID string, inliner notion.PageInliner) *pageVisit {
	if ctx.Err() != nil {
		return nil
	}

	rec := &PageRecord{
		URL:       pageURL,
		ParentID:  parentID,
		State:     StatePending,
		VisitedAt: time.Now().UTC(),
	}

	keys, err := visitKeys(pageURL)
	if err != nil {
		s.fail(rec, FailureFetch, err)
		return nil
	}
	if s.isVisited(keys) {
		s.summary.PagesSkipped++
		slog.Debug("Skipping visited page", "url", pageURL)
		return nil
	}

	if s.config.Limit > 0 && s.summary.PagesExported >= s.config.Limit {
		if !s.limitLogged {
			slog.Info("Page limit reached", "limit", s.config.Limit)
			s.limitLogged = true
		}
		return nil
	}

	for _, k := range keys {
		s.visited[k] = true
	}

	if s.robots != nil && !s.allowedByRobots(ctx, pageURL) {
		s.fail(rec, FailureRobotsDisallowed, ErrRobotsDisallowed)
		return nil
	}

	s.transition(rec, StateFetching)
	if err := s.rateLimiter.Wait(ctx, pageURL); err != nil {
		if ctx.Err() == nil {
			s.fail(rec, FailureFetch, err)
		}
		return nil
	}

	slog.Info("Fetching page", "url", pageURL)
	resp, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() == nil {
			s.fail(rec, FailureFetch, err)
		}
		return nil
	}
	rec.StatusCode = resp.StatusCode
	rec.DownloadTime = resp.Metrics.DownloadTime

	base := pageURL
	if resp.FinalURL != "" {
		base = resp.FinalURL
	}
	if s.baseURL == "" {
		s.baseURL = base
	}

	s.transition(rec, StateExtracting)
	doc, err := s.parser.Parse(resp.Body)
	if doc != nil {
		rec.ContentHash = doc.ContentHash
	}
	if err != nil {
		s.fail(rec, FailurePayloadMissing, err)
		return nil
	}

	extractor := notion.NewExtractor(notion.RendererOptions{
		Mode:         s.mode,
		ImageBaseURL: s.config.ImageBaseURL,
		Registry:     s.registry,
		Inliner:      inliner,
	})
	content, err := extractor.Extract(ctx, base, doc.Payload)
	if err != nil {
		if ctx.Err() == nil {
			s.fail(rec, FailureMissingRootPage, err)
		}
		return nil
	}

	rec.PageID = content.ID
	rec.Title = content.Title
	s.summary.PagesExported++
	// The URL may not carry the id, e.g. a bare origin or custom domain
	s.visited[pageIDKey(content.ID)] = true

	return &pageVisit{content: content, record: rec, baseURL: base}
}

func (s *Scheduler) allowedByRobots(ctx context.Context, pageURL string) bool {
	allowed, err := s.robots.IsAllowed(ctx, pageURL)
	if err != nil {
		slog.Warn("Robots.txt check failed", "url", pageURL, "error", err)
		return true
	}

	if u, err := url.Parse(pageURL); err == nil {
		s.rateLimiter.RaiseHostDelay(u.Host, s.robots.GetCrawlDelay(u.Host))
	}
	return allowed
}

func (s *Scheduler) subpageURL(base, pageID string) (string, error) {
	ref, ok := s.registry.Lookup(pageID)
	if !ok {
		return "", fmt.Errorf("no title recorded for page %s", pageID)
	}
	return notion.SubpageURL(base, ref.Title, pageID)
}

func (s *Scheduler) isVisited(keys []string) bool {
	for _, k := range keys {
		if s.visited[k] {
			return true
		}
	}
	return false
}

func (s *Scheduler) persist(rec *PageRecord, path, content string) bool {
	n, err := s.writer.WriteDocument(path, content)
	if err != nil {
		s.fail(rec, FailureWrite, err)
		return false
	}

	rec.OutputPath = path
	rec.BytesWritten = n
	s.summary.FilesWritten++
	s.summary.BytesWritten += int64(n)
	slog.Info("Saved page", "title", rec.Title, "path", path)
	return true
}

func (s *Scheduler) transition(rec *PageRecord, state PageState) {
	rec.State = state
	slog.Debug("Page state", "url", rec.URL, "state", string(state))
}

func (s *Scheduler) finish(rec *PageRecord) {
	s.transition(rec, StateDone)
	s.record(rec)
}

func (s *Scheduler) fail(rec *PageRecord, kind string, err error) {
	s.transition(rec, StateFailed)
	rec.FailureKind = kind
	rec.ErrorMessage = err.Error()

	s.summary.Failures = append(s.summary.Failures, PageFailure{
		URL:        rec.URL,
		Kind:       kind,
		Message:    err.Error(),
		OccurredAt: time.Now().UTC(),
	})
	slog.Error("Page failed", "url", rec.URL, "kind", kind, "error", err)
	s.record(rec)
}

func (s *Scheduler) record(rec *PageRecord) {
	if err := s.journal.RecordPage(s.runID, rec); err != nil {
		slog.Warn("Failed to record page in journal", "url", rec.URL, "error", err)
	}
}

// visitKeys returns the visited-set keys of a page: its normalized URL and,
// when the URL carries one, its page id.
func visitKeys(pageURL string) ([]string, error) {
	normalized, err := notion.NormalizeURL(pageURL)
	if err != nil {
		return nil, err
	}
	keys := []string{normalized}
	if id, ok := notion.PageIDFromURL(pageURL); ok {
		keys = append(keys, pageIDKey(id))
	}
	return keys, nil
}

// pageIDKey returns the visited-set key of a page id, in canonical UUID
// form when the id parses as one
func pageIDKey(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		id = u.String()
	}
	return "id:" + id
}

func displayTitle(title string) string {
	if title == "" {
		return UntitledPage
	}
	return title
}

