package storage

const schemaVersion = "1"

const schemaSQL = `
-- One row per export run
CREATE TABLE IF NOT EXISTS export_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    start_url TEXT NOT NULL,
    mode TEXT NOT NULL CHECK (mode IN ('single', 'multi')),
    status TEXT NOT NULL DEFAULT 'running' CHECK (status IN ('running', 'completed')),
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME,

    -- Totals, filled in when the run finishes
    pages_exported INTEGER DEFAULT 0,
    pages_skipped INTEGER DEFAULT 0,
    files_written INTEGER DEFAULT 0,
    bytes_written INTEGER DEFAULT 0,
    failures INTEGER DEFAULT 0,
    duration_ms INTEGER
);

-- Terminal state of every page visited during a run
CREATE TABLE IF NOT EXISTS page_visits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES export_runs(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    page_id TEXT,
    title TEXT,
    parent_id TEXT,
    state TEXT NOT NULL CHECK (state IN ('pending', 'fetching', 'extracting', 'persisting', 'inlining', 'recursing', 'done', 'failed')),
    output_path TEXT,
    status_code INTEGER,
    content_hash TEXT,
    bytes_written INTEGER DEFAULT 0,
    download_time_ms INTEGER,
    failure_kind TEXT,
    error_message TEXT,
    visited_at DATETIME NOT NULL,
    UNIQUE(run_id, url)
);

CREATE INDEX IF NOT EXISTS idx_visits_run ON page_visits(run_id);
CREATE INDEX IF NOT EXISTS idx_visits_page_id ON page_visits(page_id) WHERE page_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_visits_failure ON page_visits(failure_kind) WHERE state = 'failed';

-- Failed visits across all runs, for reporting
CREATE VIEW IF NOT EXISTS failed_visits AS
SELECT
    v.run_id, r.start_url, v.url, v.failure_kind, v.error_message, v.visited_at
FROM page_visits v
JOIN export_runs r ON r.id = v.run_id
WHERE v.state = 'failed';

-- Journal metadata as key-value pairs
CREATE TABLE IF NOT EXISTS journal_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
