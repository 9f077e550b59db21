// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/Lllllllleong/slidedeckflow/internal/llm"
)

// ResponderFunc produces the reply for one request.
type ResponderFunc func(ctx context.Context, req llm.Request) (string, error)

// Mock is an llm.Client that records every request and answers through a
// ResponderFunc. It is safe for concurrent use.
type Mock struct {
	respond ResponderFunc

	mu    sync.Mutex
	calls []llm.Request
}

// New returns a Mock answering with respond.
func New(respond ResponderFunc) *Mock {
	return &Mock{respond: respond}
}

// Reply returns a Mock that always answers text.
func Reply(text string) *Mock {
	return New(func(context.Context, llm.Request) (string, error) { return text, nil })
}

// Fail returns a Mock that always fails with err.
func Fail(err error) *Mock {
	return New(func(context.Context, llm.Request) (string, error) { return "", err })
}

// Complete implements llm.Client.
func (m *Mock) Complete(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.respond(ctx, req)
}

// Calls returns the recorded requests in arrival order.
func (m *Mock) Calls() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.calls...)
}

// CallCount returns the number of requests received so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
