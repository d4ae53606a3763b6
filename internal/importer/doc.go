// Package importer drives a batch of joke fetches against one upstream URL.
//
// An Importer issues exactly count GET requests, at most Concurrency at a
// time, decodes every successful body into a model.JokeRecord and hands the
// records to a Saver. A failed fetch or decode is logged as
// "Import #<index> failed: <reason>" and the batch carries on. When every task
// has settled the summary "Migrate completed. <saved> / <count> saved
// successfully!" is logged at info level.
//
// Records are returned in completion order, not request order.
package importer
