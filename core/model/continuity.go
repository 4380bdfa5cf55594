package model

import "time"

// ContinuityScore captures the affinity between an RBT and a client derived
// from their session history. Scores are recomputed on demand and never
// persisted as a source of truth.
type ContinuityScore struct {
	RBTID           string     `json:"rbt_id"`
	ClientID        string     `json:"client_id"`
	Score           float64    `json:"score"`
	TotalSessions   int        `json:"total_sessions"`
	RecentSessions  int        `json:"recent_sessions"`
	LastSessionDate *time.Time `json:"last_session_date,omitempty"`
}
