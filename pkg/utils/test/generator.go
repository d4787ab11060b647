package testutils

import (
	"context"
	"sync"

	"github.com/ecofes/lubebot/pkg/generation"
)

// MockGenerator returns a fixed answer and records the requests it received.
type MockGenerator struct {
	mu sync.Mutex

	Answer string
	Err    error

	Requests []generation.Request
}

func NewMockGenerator(answer string) *MockGenerator {
	return &MockGenerator{Answer: answer}
}

func (m *MockGenerator) Generate(_ context.Context, req generation.Request) (*generation.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &generation.Response{Model: "mock", Text: m.Answer, StopReason: "stop"}, nil
}

// LastRequest returns the most recent request, if any.
func (m *MockGenerator) LastRequest() (generation.Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return generation.Request{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}

var _ generation.Generator = (*MockGenerator)(nil)
