// Package fetcher performs the single GET request behind each import task.
//
// A Fetcher issues one request per call with a fixed per-request timeout and
// never retries. Failures are returned as *FetchError so callers can log the
// reason and move on to the next task.
//
// Requests can optionally be routed through a SOCKS5 proxy
// (golang.org/x/net/proxy), for example when the importer runs on a host
// without direct egress.
package fetcher
