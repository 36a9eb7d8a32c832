package crawler

import (
	"context"

	"github.com/masahif/notion2md/internal/parser"
)

// Exporter defines the main export interface
type Exporter interface {
	Run(ctx context.Context, startURL string) (*Summary, error)
}

// Fetcher retrieves a page, retrying as configured. Responses with a status
// of 400 or above are returned as errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*HTTPResponse, error)
}

// PayloadParser extracts the embedded payload from a fetched document
type PayloadParser interface {
	Parse(raw []byte) (*parser.Document, error)
}

// DocumentWriter persists rendered documents
type DocumentWriter interface {
	WriteDocument(path, content string) (int, error)
}

// Journal records export runs and page visits
type Journal interface {
	StartRun(startURL, mode string) (int64, error)
	RecordPage(runID int64, rec *PageRecord) error
	FinishRun(runID int64, summary *Summary) error
	Close() error
}

// NopJournal discards everything
type NopJournal struct{}

func (NopJournal) StartRun(string, string) (int64, error) { return 0, nil }
func (NopJournal) RecordPage(int64, *PageRecord) error    { return nil }
func (NopJournal) FinishRun(int64, *Summary) error        { return nil }
func (NopJournal) Close() error                           { return nil }
