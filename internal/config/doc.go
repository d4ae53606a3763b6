// Package config provides configuration structures for jokeimport.
//
// Two layers live here. Config carries runtime options taken from CLI flags
// (timeouts, concurrency ceiling, storage backend). Settings is the module's
// persisted settings object (api_url, node_type, page_size), read by the import
// pipeline and written only by the settings surfaces through SettingsStore.
package config
