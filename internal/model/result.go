package model

import (
	"fmt"
	"time"
)

// FetchOutcome is the result of one fetch task.
// Index is the 1-based task number; the task succeeded when Err is nil.
type FetchOutcome struct {
	Index int
	Body  []byte
	Err   error
}

// Succeeded reports whether the fetch returned a body.
func (o FetchOutcome) Succeeded() bool {
	return o.Err == nil
}

// SaveStatus classifies the outcome of persisting one record.
type SaveStatus string

const (
	// StatusSaved means a node was created.
	StatusSaved SaveStatus = "saved"
	// StatusInvalid means the record failed validation and nothing was written.
	StatusInvalid SaveStatus = "invalid"
	// StatusStoreFailed means the store rejected the node.
	StatusStoreFailed SaveStatus = "store_failed"
)

// SaveResult is the per-item outcome of the persistence sink.
type SaveResult struct {
	ExternalID string     `json:"id"`
	NID        string     `json:"nid,omitempty"`
	Status     SaveStatus `json:"status"`
	Err        error      `json:"-"`
}

// OK reports whether the record was saved.
func (r SaveResult) OK() bool {
	return r.Status == StatusSaved
}

// ErrorMessage returns the error text, or "" on success.
func (r SaveResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ImportRequest asks for Count jokes from SourceURL.
type ImportRequest struct {
	SourceURL string
	Count     int
}

// ImportReport aggregates one import run.
type ImportReport struct {
	URL          string        `json:"url"`
	NodeType     string        `json:"node_type"`
	Requested    int           `json:"requested"`
	Concurrency  int           `json:"concurrency"`
	Fetched      int           `json:"fetched"`
	FetchFailed  int           `json:"fetch_failed"`
	DecodeFailed int           `json:"decode_failed"`
	Saved        int           `json:"saved"`
	Invalid      int           `json:"invalid"`
	StoreFailed  int           `json:"store_failed"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Records      []SaveResult  `json:"records"`
}

// Add records one sink result and updates the counters.
func (r *ImportReport) Add(res SaveResult) {
	switch res.Status {
	case StatusSaved:
		r.Saved++
	case StatusInvalid:
		r.Invalid++
	case StatusStoreFailed:
		r.StoreFailed++
	}
	r.Records = append(r.Records, res)
}

// Message is the short "<saved> / <requested> saved successfully" form.
// The first number counts records the store accepted, not records fetched,
// so invalid and store-failed records lower it.
func (r *ImportReport) Message() string {
	return fmt.Sprintf("%d / %d saved successfully", r.Saved, r.Requested)
}

// Summary is the line logged when an import finishes.
func (r *ImportReport) Summary() string {
	return fmt.Sprintf("Migrate completed. %d / %d saved successfully!", r.Saved, r.Requested)
}
