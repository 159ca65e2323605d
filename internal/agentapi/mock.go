package agentapi

import (
	"context"
	"strings"
	"sync"
)

// MockRule answers prompts containing Match.
type MockRule struct {
	Match string
	Text  string
	Err   error
}

// MockAgent returns scripted answers for development and testing. Rules are checked in
// order; the first whose Match is a case-insensitive substring of the prompt wins.
type MockAgent struct {
	mu      sync.Mutex
	Rules   []MockRule
	Default string
	calls   []string
}

func (m *MockAgent) Name() string { return "mock" }

// On appends a rule and returns the agent for chaining.
func (m *MockAgent) On(match, text string) *MockAgent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rules = append(m.Rules, MockRule{Match: match, Text: text})
	return m
}

// OnError appends a failing rule.
func (m *MockAgent) OnError(match string, err error) *MockAgent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rules = append(m.Rules, MockRule{Match: match, Err: err})
	return m
}

func (m *MockAgent) Prompt(_ context.Context, prompt, _ string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, prompt)
	lower := strings.ToLower(prompt)
	for _, r := range m.Rules {
		if strings.Contains(lower, strings.ToLower(r.Match)) {
			if r.Err != nil {
				return nil, r.Err
			}
			return &Response{Success: true, Text: r.Text}, nil
		}
	}
	return &Response{Success: true, Text: m.Default}, nil
}

// Calls returns every prompt received so far.
func (m *MockAgent) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallsMatching returns the prompts containing match.
func (m *MockAgent) CallsMatching(match string) []string {
	var out []string
	for _, c := range m.Calls() {
		if strings.Contains(strings.ToLower(c), strings.ToLower(match)) {
			out = append(out, c)
		}
	}
	return out
}
