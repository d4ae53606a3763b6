// Package sink turns decoded jokes into stored nodes, one record per call.
package sink
