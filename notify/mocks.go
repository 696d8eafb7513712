package notify

import (
	"context"
	"sync"

	"logwarden/core"
)

// MockChannel records delivered alerts for assertions in tests
type MockChannel struct {
	mu         sync.Mutex
	delivered  []*core.Alert
	failNext   bool
	failAlways bool
	err        error
}

// NewMockChannel creates a mock channel
func NewMockChannel() *MockChannel {
	return &MockChannel{}
}

// Name returns the channel identifier
func (m *MockChannel) Name() string {
	return "mock"
}

// Send records the alert, or fails if configured to
func (m *MockChannel) Send(_ context.Context, alert *core.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAlways || m.failNext {
		m.failNext = false
		return m.err
	}
	m.delivered = append(m.delivered, alert.Clone())
	return nil
}

// Delivered returns a copy of all recorded alerts
func (m *MockChannel) Delivered() []*core.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*core.Alert, len(m.delivered))
	copy(out, m.delivered)
	return out
}

// FailWith makes every subsequent Send return err
func (m *MockChannel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAlways = true
	m.err = err
}
