package config

import "errors"

var (
	// ErrInvalidURL is returned when the start URL is not an absolute http(s) URL
	ErrInvalidURL = errors.New("invalid URL")
	// ErrEmptyOutputDir is returned when the output directory is empty
	ErrEmptyOutputDir = errors.New("output_dir cannot be empty")
	// ErrInvalidDelay is returned when request_delay or retry_delay is negative
	ErrInvalidDelay = errors.New("request_delay and retry_delay must not be negative")
	// ErrInvalidRetries is returned when max_retries is less than 1
	ErrInvalidRetries = errors.New("max_retries must be at least 1")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidLimit is returned when limit is negative
	ErrInvalidLimit = errors.New("limit must not be negative")
	// ErrInvalidHeader is returned when a header is not in "Name: Value" form
	ErrInvalidHeader = errors.New("header must be in 'Name: Value' format")
)
