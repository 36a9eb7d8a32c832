package crawler

// Option configures a Scheduler
type Option func(opts *options)

type options struct {
	fetcher Fetcher
	parser  PayloadParser
	writer  DocumentWriter
	journal Journal
	robots  *RobotsParser
}

// WithFetcher replaces the HTTP client built from the config
func WithFetcher(fetcher Fetcher) Option {
	return func(opts *options) {
		opts.fetcher = fetcher
	}
}

// WithParser replaces the default payload parser
func WithParser(parser PayloadParser) Option {
	return func(opts *options) {
		opts.parser = parser
	}
}

// WithWriter replaces the default filesystem writer
func WithWriter(writer DocumentWriter) Option {
	return func(opts *options) {
		opts.writer = writer
	}
}

// WithJournal records runs and page visits in journal
func WithJournal(journal Journal) Option {
	return func(opts *options) {
		opts.journal = journal
	}
}

// WithRobots checks every page against robots before fetching it,
// regardless of the respect_robots setting.
func WithRobots(robots *RobotsParser) Option {
	return func(opts *options) {
		opts.robots = robots
	}
}
