package mocks

import (
	"context"
	"sync"

	"github.com/ai-post-manager/internal/polisher"
)

// MockPolisher is a mock implementation of Polisher
type MockPolisher struct {
	PolishFunc func(ctx context.Context, draft string) (string, error)

	mu    sync.Mutex
	calls []string
}

// Verify interface compliance
var _ polisher.Polisher = (*MockPolisher)(nil)

func NewMockPolisher() *MockPolisher {
	return &MockPolisher{}
}

func (m *MockPolisher) Polish(ctx context.Context, draft string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, draft)
	m.mu.Unlock()

	if m.PolishFunc != nil {
		return m.PolishFunc(ctx, draft)
	}
	return "polished: " + draft, nil
}

// Calls returns the drafts passed to Polish so far
func (m *MockPolisher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
