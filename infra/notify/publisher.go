package notify

import (
	"fmt"
	"sync"
	"time"

	corenotify "github.com/novabehavior/abacore/core/notify"
)

// Publisher mirrors the core notify.Publisher interface.
type Publisher = corenotify.Publisher

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Changes    []corenotify.SessionChange
	FailRBTs   map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailRBTs:   make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// PublishSessionChange records the change or returns an error if configured to fail.
func (m *MockPublisher) PublishSessionChange(ch corenotify.SessionChange) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRBTs[ch.RBTID] {
		return "", fmt.Errorf("publish failed")
	}
	m.Changes = append(m.Changes, ch)
	messageID := fmt.Sprintf("msg-%d", len(m.Changes))
	m.AckResults[messageID] = true
	return messageID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(messageID string, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[messageID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown message")
	}
	return ok, nil
}

// Published returns a copy of the recorded changes.
func (m *MockPublisher) Published() []corenotify.SessionChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]corenotify.SessionChange, len(m.Changes))
	copy(out, m.Changes)
	return out
}
