package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/novabehavior/abacore/core/auditlog"
	"github.com/novabehavior/abacore/core/clock"
	"github.com/novabehavior/abacore/core/model"
)

// memoryState holds the committed data. Transactions work on a deep copy and
// publish it by swapping the pointer under the writer lock.
type memoryState struct {
	sessions map[string]model.Session
	teams    map[string]model.Team
	rbts     map[string]model.RBT
}

func newMemoryState() memoryState {
	return memoryState{
		sessions: make(map[string]model.Session),
		teams:    make(map[string]model.Team),
		rbts:     make(map[string]model.RBT),
	}
}

func (st memoryState) clone() memoryState {
	out := memoryState{
		sessions: make(map[string]model.Session, len(st.sessions)),
		teams:    make(map[string]model.Team, len(st.teams)),
		rbts:     make(map[string]model.RBT, len(st.rbts)),
	}
	for id, s := range st.sessions {
		out.sessions[id] = s
	}
	for id, t := range st.teams {
		out.teams[id] = copyTeam(t)
	}
	for id, r := range st.rbts {
		out.rbts[id] = r
	}
	return out
}

func copyTeam(t model.Team) model.Team {
	members := make([]string, len(t.RBTIDs))
	copy(members, t.RBTIDs)
	t.RBTIDs = members
	return t
}

// MemoryStore is the in-memory Store implementation. A single writer lock
// serialises transactions; readers observe the last committed state.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
	audit auditlog.Store
	clk   clock.Clock
}

// NewMemoryStore builds a store that flushes committed audit events to the
// given log. A nil audit store falls back to an in-memory log and a nil clock
// to the system clock.
func NewMemoryStore(audit auditlog.Store, clk clock.Clock) *MemoryStore {
	if audit == nil {
		audit = auditlog.NewMemoryStore()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &MemoryStore{
		state: newMemoryState(),
		audit: audit,
		clk:   clk,
	}
}

// AuditLog exposes the audit store the memory store commits into.
func (s *MemoryStore) AuditLog() auditlog.Store { return s.audit }

func (s *MemoryStore) FindByID(_ context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.state, id)
}

func (s *MemoryStore) FindActiveByDateRange(_ context.Context, start, end time.Time) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findActiveByDateRange(s.state, start, end), nil
}

func (s *MemoryStore) FindByDateRange(_ context.Context, start, end time.Time) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByDateRange(s.state, start, end), nil
}

func (s *MemoryStore) FindByClient(_ context.Context, clientID string) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByClient(s.state, clientID), nil
}

func (s *MemoryStore) FindByRBT(_ context.Context, rbtID string) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByRBT(s.state, rbtID), nil
}

func (s *MemoryStore) CheckConflicts(_ context.Context, clientID, rbtID string, start, end time.Time) ([]model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return checkConflicts(s.state, clientID, rbtID, start, end), nil
}

func (s *MemoryStore) FindActiveTeamForClient(_ context.Context, clientID string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findActiveTeamForClient(s.state, clientID)
}

func (s *MemoryStore) FindTeamsByRBT(_ context.Context, rbtID string) ([]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findTeamsByRBT(s.state, rbtID), nil
}

func (s *MemoryStore) FindRBT(_ context.Context, id string) (model.RBT, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findRBT(s.state, id)
}

// RunInTransaction executes fn against a copy of the current state. When fn
// returns nil the staged audit events are flushed first and the copy then
// replaces the committed state; a flush failure aborts the whole unit and is
// reported as a TransactionError. When fn returns an error nothing changes
// and the error is passed through untouched.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx Tx) error) error {
	if fn == nil {
		return fmt.Errorf("run in transaction: nil function")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		state: s.state.clone(),
		now:   s.clk.Now(),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for _, ev := range tx.staged {
		if err := s.audit.Record(ctx, ev); err != nil {
			return TransactionError{Err: fmt.Errorf("record audit event: %w", err)}
		}
	}
	s.state = tx.state
	return nil
}

// memTx is the Tx implementation bound to a cloned state.
type memTx struct {
	state  memoryState
	staged []model.ScheduleEvent
	now    time.Time
}

func (tx *memTx) FindByID(_ context.Context, id string) (model.Session, error) {
	return findByID(tx.state, id)
}

func (tx *memTx) FindActiveByDateRange(_ context.Context, start, end time.Time) ([]model.Session, error) {
	return findActiveByDateRange(tx.state, start, end), nil
}

func (tx *memTx) FindByDateRange(_ context.Context, start, end time.Time) ([]model.Session, error) {
	return findByDateRange(tx.state, start, end), nil
}

func (tx *memTx) FindByClient(_ context.Context, clientID string) ([]model.Session, error) {
	return findByClient(tx.state, clientID), nil
}

func (tx *memTx) FindByRBT(_ context.Context, rbtID string) ([]model.Session, error) {
	return findByRBT(tx.state, rbtID), nil
}

func (tx *memTx) CheckConflicts(_ context.Context, clientID, rbtID string, start, end time.Time) ([]model.Session, error) {
	return checkConflicts(tx.state, clientID, rbtID, start, end), nil
}

func (tx *memTx) FindActiveTeamForClient(_ context.Context, clientID string) (model.Team, error) {
	return findActiveTeamForClient(tx.state, clientID)
}

func (tx *memTx) FindTeamsByRBT(_ context.Context, rbtID string) ([]model.Team, error) {
	return findTeamsByRBT(tx.state, rbtID), nil
}

func (tx *memTx) FindRBT(_ context.Context, id string) (model.RBT, error) {
	return findRBT(tx.state, id)
}

func (tx *memTx) CreateSession(s model.Session) (model.Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = model.StatusScheduled
	}
	if err := s.Validate(); err != nil {
		return model.Session{}, err
	}
	if _, ok := tx.state.sessions[s.ID]; ok {
		return model.Session{}, fmt.Errorf("session %s already exists", s.ID)
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.sessions[s.ID] = s
	return s, nil
}

func (tx *memTx) UpdateSession(s model.Session) (model.Session, error) {
	old, ok := tx.state.sessions[s.ID]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	if err := s.Validate(); err != nil {
		return model.Session{}, err
	}
	if old.Status != s.Status && !old.Status.CanTransitionTo(s.Status) {
		return model.Session{}, fmt.Errorf("illegal status transition %s -> %s", old.Status, s.Status)
	}
	s.CreatedAt = old.CreatedAt
	s.CreatedBy = old.CreatedBy
	s.UpdatedAt = tx.now
	tx.state.sessions[s.ID] = s
	return s, nil
}

func (tx *memTx) UpsertTeam(t model.Team) (model.Team, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return model.Team{}, err
	}
	tx.state.teams[t.ID] = copyTeam(t)
	return t, nil
}

func (tx *memTx) UpsertRBT(r model.RBT) (model.RBT, error) {
	if err := r.Validate(); err != nil {
		return model.RBT{}, err
	}
	tx.state.rbts[r.ID] = r
	return r, nil
}

func (tx *memTx) AppendEvent(ev model.ScheduleEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = tx.now
	}
	tx.staged = append(tx.staged, ev)
}

func findByID(st memoryState, id string) (model.Session, error) {
	s, ok := st.sessions[id]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return s, nil
}

func findActiveByDateRange(st memoryState, start, end time.Time) []model.Session {
	var out []model.Session
	for _, s := range st.sessions {
		if s.IsActive() && s.Overlaps(start, end) {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out
}

func findByDateRange(st memoryState, start, end time.Time) []model.Session {
	var out []model.Session
	for _, s := range st.sessions {
		if !s.Start.Before(start) && !s.Start.After(end) {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out
}

func findByClient(st memoryState, clientID string) []model.Session {
	var out []model.Session
	for _, s := range st.sessions {
		if s.ClientID == clientID {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out
}

func findByRBT(st memoryState, rbtID string) []model.Session {
	var out []model.Session
	for _, s := range st.sessions {
		if s.RBTID == rbtID {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out
}

func checkConflicts(st memoryState, clientID, rbtID string, start, end time.Time) []model.Session {
	var out []model.Session
	for _, s := range st.sessions {
		if !s.IsActive() || !s.Overlaps(start, end) {
			continue
		}
		if (clientID != "" && s.ClientID == clientID) || (rbtID != "" && s.RBTID == rbtID) {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out
}

func findActiveTeamForClient(st memoryState, clientID string) (model.Team, error) {
	var (
		best  model.Team
		found bool
	)
	for _, t := range st.teams {
		if !t.IsActive || t.ClientID != clientID {
			continue
		}
		if !found || t.EffectiveDate.After(best.EffectiveDate) {
			best = t
			found = true
		}
	}
	if !found {
		return model.Team{}, ErrTeamNotFound
	}
	return copyTeam(best), nil
}

func findTeamsByRBT(st memoryState, rbtID string) []model.Team {
	var out []model.Team
	for _, t := range st.teams {
		if t.IsActive && t.HasMember(rbtID) {
			out = append(out, copyTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func findRBT(st memoryState, id string) (model.RBT, error) {
	r, ok := st.rbts[id]
	if !ok {
		return model.RBT{}, ErrRBTNotFound
	}
	return r, nil
}

func sortSessions(ss []model.Session) {
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Start.Equal(ss[j].Start) {
			return ss[i].ID < ss[j].ID
		}
		return ss[i].Start.Before(ss[j].Start)
	})
}
