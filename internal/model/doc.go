// Package model defines the data structures shared by the import pipeline.
//
// This package contains the following main types:
//   - JokeRecord: a joke as decoded from the upstream API
//   - Node: a joke persisted as a content record of a configured type
//   - SaveResult: the per-item outcome of the persistence sink
//   - ImportReport: the aggregate result of one import run
//
// Keeping these types in their own package lets the fetcher, importer, sink,
// store and report packages share them without import cycles.
package model
