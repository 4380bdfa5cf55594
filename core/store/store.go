// Package store defines the persistence boundary of the scheduling core and
// provides the in-memory transactional implementation used by tests, the demo
// wiring and single-process deployments.
//
// Mutating operations run inside RunInTransaction: the conflict-detection
// reads and the subsequent writes share one writer lock, so two concurrent
// requests for the same caregiver and time window cannot both succeed. On any
// failure inside the unit every write is discarded, session rows and audit
// events alike.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/novabehavior/abacore/core/model"
)

// ErrSessionNotFound is returned when a session id resolves to nothing.
var ErrSessionNotFound = errors.New("session not found")

// ErrTeamNotFound is returned when a client has no active team.
var ErrTeamNotFound = errors.New("no active team for client")

// ErrRBTNotFound is returned when an RBT id has no directory record.
var ErrRBTNotFound = errors.New("rbt not found")

// TransactionError wraps a failure during the commit phase of an atomic unit.
// Nothing has been persisted when it is returned; retrying is safe.
type TransactionError struct {
	Err error
}

func (e TransactionError) Error() string {
	return fmt.Sprintf("transaction failed: %v", e.Err)
}

func (e TransactionError) Unwrap() error { return e.Err }

// SessionReader provides read access to persisted sessions. Readers see
// committed state; snapshot staleness is acceptable for scoring and analytics.
type SessionReader interface {
	// FindByID returns the session or ErrSessionNotFound.
	FindByID(ctx context.Context, id string) (model.Session, error)
	// FindActiveByDateRange returns active sessions whose [start,end)
	// interval overlaps the given window. Used for conflict detection.
	FindActiveByDateRange(ctx context.Context, start, end time.Time) ([]model.Session, error)
	// FindByDateRange returns sessions of any status starting within
	// [start,end]. Used for reporting.
	FindByDateRange(ctx context.Context, start, end time.Time) ([]model.Session, error)
	FindByClient(ctx context.Context, clientID string) ([]model.Session, error)
	FindByRBT(ctx context.Context, rbtID string) ([]model.Session, error)
	// CheckConflicts returns active sessions overlapping [start,end) that
	// involve the given client or RBT. Either id may be empty.
	CheckConflicts(ctx context.Context, clientID, rbtID string, start, end time.Time) ([]model.Session, error)
}

// TeamReader provides read access to care teams.
type TeamReader interface {
	// FindActiveTeamForClient returns the client's active team or ErrTeamNotFound.
	FindActiveTeamForClient(ctx context.Context, clientID string) (model.Team, error)
	// FindTeamsByRBT returns the active teams the RBT belongs to.
	FindTeamsByRBT(ctx context.Context, rbtID string) ([]model.Team, error)
}

// RBTReader provides read access to the caregiver directory.
type RBTReader interface {
	// FindRBT returns the directory record or ErrRBTNotFound.
	FindRBT(ctx context.Context, id string) (model.RBT, error)
}

// Tx exposes reads and writes inside one atomic unit. Writes become visible
// only when the enclosing RunInTransaction call returns nil.
type Tx interface {
	SessionReader
	TeamReader
	RBTReader
	// CreateSession validates and stores a new session, assigning an id
	// when absent. Audit timestamps are set from the store clock.
	CreateSession(s model.Session) (model.Session, error)
	// UpdateSession replaces a stored session. Status changes must be
	// legal transitions.
	UpdateSession(s model.Session) (model.Session, error)
	// UpsertTeam stores a team, assigning an id when absent.
	UpsertTeam(t model.Team) (model.Team, error)
	// UpsertRBT stores a caregiver directory record.
	UpsertRBT(r model.RBT) (model.RBT, error)
	// AppendEvent stages an audit event that is flushed to the audit log
	// if and only if the unit commits.
	AppendEvent(ev model.ScheduleEvent)
}

// Store combines snapshot reads with the transactional write unit.
type Store interface {
	SessionReader
	TeamReader
	RBTReader
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error
}
