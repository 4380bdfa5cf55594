// Package notify defines the outbound boundary for telling care teams about
// schedule changes. Delivery is best-effort: a failed or unacknowledged
// notification never rolls back the committed schedule change.
package notify

import (
	"errors"
	"time"
)

// ErrAckTimeout is returned when no acknowledgment is received before the timeout.
var ErrAckTimeout = errors.New("timeout waiting for ack")

// SessionChange is the notification payload for one schedule change.
type SessionChange struct {
	SessionID string    `json:"session_id"`
	ClientID  string    `json:"client_id"`
	RBTID     string    `json:"rbt_id"`
	Change    string    `json:"change"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Reason    string    `json:"reason,omitempty"`
}

// Publisher delivers schedule change notifications and tracks acknowledgments.
type Publisher interface {
	// PublishSessionChange sends the notification and returns the message
	// identifier used to track the acknowledgment.
	PublishSessionChange(ch SessionChange) (messageID string, err error)

	// WaitForAck waits for an acknowledgment of the provided message
	// identifier or until the timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}
