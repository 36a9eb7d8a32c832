package crawler

import "time"

// PageState is the lifecycle stage of one page visit
type PageState string

// Page visit states. A visit moves Pending → Fetching → Extracting →
// (Persisting | Inlining) → Recursing → Done, or ends in Failed.
const (
	StatePending    PageState = "pending"
	StateFetching   PageState = "fetching"
	StateExtracting PageState = "extracting"
	StatePersisting PageState = "persisting"
	StateInlining   PageState = "inlining"
	StateRecursing  PageState = "recursing"
	StateDone       PageState = "done"
	StateFailed     PageState = "failed"
)

// Failure kinds recorded in summaries and the journal
const (
	FailureFetch            = "fetch_failure"
	FailurePayloadMissing   = "payload_missing"
	FailureMissingRootPage  = "missing_root_page"
	FailureWrite            = "write_failure"
	FailureRobotsDisallowed = "robots_disallowed"
)

// PageFailure describes a page whose branch was abandoned
type PageFailure struct {
	URL        string    // URL of the failed page
	Kind       string    // One of the Failure* kinds
	Message    string    // Detailed error message
	OccurredAt time.Time // Failure timestamp (UTC)
}

// PageRecord is the journal entry for one page visit
type PageRecord struct {
	URL          string        // Fetched URL
	PageID       string        // Root block id, empty until extracted
	Title        string        // Plain-text page title
	ParentID     string        // Page id of the referencing page, empty for the start page
	State        PageState     // Final state of the visit
	OutputPath   string        // Written file, empty when inlined or failed
	StatusCode   int           // HTTP status of the successful fetch
	ContentHash  string        // sha256 of the fetched document
	BytesWritten int           // Size of the written document
	DownloadTime time.Duration // Time spent fetching, retries included
	FailureKind  string        // Set when State is StateFailed
	ErrorMessage string        // Set when State is StateFailed
	VisitedAt    time.Time     // Visit start (UTC)
}

// Summary reports the outcome of one export run
type Summary struct {
	StartURL      string
	Mode          string
	PagesExported int           // Pages fetched and rendered
	PagesSkipped  int           // References to pages already visited
	Failures      []PageFailure // Abandoned branches
	FilesWritten  int
	BytesWritten  int64
	StartTime     time.Time
	Duration      time.Duration
}
