package model

import (
	"fmt"
	"time"
)

// Team is the active set of RBTs authorized to serve a client, with one
// designated primary. A client has at most one active team at a time; that
// invariant is enforced by the owning collaborator, not here.
type Team struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"client_id"`
	RBTIDs        []string  `json:"rbt_ids"`
	PrimaryRBTID  string    `json:"primary_rbt_id"`
	EffectiveDate time.Time `json:"effective_date"`
	IsActive      bool      `json:"is_active"`
}

// HasMember reports whether the given RBT belongs to the team.
func (t Team) HasMember(rbtID string) bool {
	for _, id := range t.RBTIDs {
		if id == rbtID {
			return true
		}
	}
	return false
}

// Validate checks team coherence: members are unique and the primary is a member.
func (t Team) Validate() error {
	if t.ClientID == "" {
		return fmt.Errorf("team client id is required")
	}
	if len(t.RBTIDs) == 0 {
		return fmt.Errorf("team has no members")
	}
	seen := make(map[string]bool, len(t.RBTIDs))
	for _, id := range t.RBTIDs {
		if id == "" {
			return fmt.Errorf("team member id is empty")
		}
		if seen[id] {
			return fmt.Errorf("duplicate team member %s", id)
		}
		seen[id] = true
	}
	if t.PrimaryRBTID != "" && !seen[t.PrimaryRBTID] {
		return fmt.Errorf("primary rbt %s is not a team member", t.PrimaryRBTID)
	}
	return nil
}
