package schedule

import (
	"time"

	"github.com/novabehavior/abacore/core/model"
)

// ResultKind classifies the outcome of a scheduling operation.
type ResultKind string

const (
	ResultSuccess           ResultKind = "success"
	ResultValidationFailed  ResultKind = "validation_failed"
	ResultConflict          ResultKind = "conflict"
	ResultNotFound          ResultKind = "not_found"
	ResultTransactionFailed ResultKind = "transaction_failed"
)

// Request describes a session to be scheduled. An empty RBTID asks the
// scheduler to select the optimal caregiver; a zero End derives the end from
// the configured session duration.
type Request struct {
	ClientID string    `json:"client_id"`
	RBTID    string    `json:"rbt_id,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
	Actor    string    `json:"actor,omitempty"`
}

// Result reports one scheduling outcome. Exactly one kind applies; the
// detail slices explain failures and Warnings carries the non-blocking
// conflicts of a success.
type Result struct {
	Kind       ResultKind     `json:"kind"`
	Session    *model.Session `json:"session,omitempty"`
	Selection  *Selection     `json:"selection,omitempty"`
	Violations []Violation    `json:"violations,omitempty"`
	Conflicts  []Conflict     `json:"conflicts,omitempty"`
	Warnings   []Conflict     `json:"warnings,omitempty"`
	Err        string         `json:"error,omitempty"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Kind == ResultSuccess }

// BulkResult partitions the outcomes of a bulk scheduling run. Entries are
// processed independently: one failure never rolls back the others.
type BulkResult struct {
	Scheduled    []Result `json:"scheduled"`
	Failed       []Result `json:"failed"`
	ValidateOnly bool     `json:"validate_only"`
}
