package config

import "errors"

// Configuration validation errors.
// Callers match them with errors.Is; messages are meant for the terminal.
var (
	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency ceiling is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownStoreDriver is returned when the store driver is neither sqlite nor mongo.
	ErrUnknownStoreDriver = errors.New("unknown store driver: must be sqlite or mongo")

	// ErrMissingMongoURI is returned when the mongo driver is selected without a URI.
	ErrMissingMongoURI = errors.New("mongo store selected but no --mongo-uri given")
)

// Settings errors.
var (
	// ErrInvalidAPIURL is returned when api_url is empty or not an absolute http(s) URL.
	// The import pipeline returns it before dispatching any request.
	ErrInvalidAPIURL = errors.New("invalid api_url")

	// ErrInvalidNodeType is returned when node_type is empty.
	ErrInvalidNodeType = errors.New("invalid node_type: must not be empty")

	// ErrInvalidPageSize is returned when page_size is not a number or outside 0..MaxPageSize.
	ErrInvalidPageSize = errors.New("invalid page_size: must be an integer between 0 and 1000")

	// ErrUnknownSetting is returned by Get and Set for keys outside the settings object.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrSettingsNotFound is returned when the settings file does not exist.
	// Run `jokeimport install` to create it.
	ErrSettingsNotFound = errors.New("settings not found: run 'jokeimport install' first")

	// ErrSettingsExist is returned by Install when settings are already present.
	ErrSettingsExist = errors.New("settings already installed (use --force to reset)")
)
