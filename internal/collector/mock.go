package collector

import (
	"context"
	"sync"
)

// MockFetcher returns a fixed body or error for development and testing.
type MockFetcher struct {
	mu    sync.Mutex
	Body  []byte
	Err   error
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSimplePrice(_ context.Context, _ []string, _ string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Body, nil
}

// Set replaces the canned response.
func (m *MockFetcher) Set(body []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Body, m.Err = body, err
}

// Calls reports how many fetches were made.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
