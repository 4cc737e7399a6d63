package decider

import (
	"context"
	"fmt"
	"sync"

	"github.com/skiff-ai/skiff/core"
)

// Mock is a queue-scripted in-memory Decider useful for tests and examples.
// Enqueued responses are emitted one per Decide call, in order. When the
// queue is exhausted, Decide returns an error so tests fail loudly instead
// of looping.
type Mock struct {
	mu    sync.Mutex
	info  Info
	queue []Response
	reqs  []Request
}

// NewMock constructs a Mock with tool support enabled.
func NewMock() *Mock {
	return &Mock{
		info: Info{Name: "mock", Provider: "mock", SupportsTools: true},
	}
}

// Enqueue appends a raw response to the script.
func (m *Mock) Enqueue(resp Response) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
	return m
}

// EnqueueText scripts a plain assistant text reply.
func (m *Mock) EnqueueText(text string) *Mock {
	return m.Enqueue(Response{
		Content:      core.NewAssistantText(text),
		FinishReason: "stop",
	})
}

// EnqueueActionCalls scripts an assistant message carrying one or more
// action calls.
func (m *Mock) EnqueueActionCalls(calls ...core.ActionCall) *Mock {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		if c.ID == "" {
			c.ID = core.NewID()
		}
		parts = append(parts, core.ActionCallPart{ActionCall: c})
	}
	return m.Enqueue(Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	})
}

// Requests returns a copy of every request seen so far, for assertions.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.reqs))
	copy(out, m.reqs)
	return out
}

// Decide implements Decider; emits the next scripted response.
func (m *Mock) Decide(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	calls := len(m.reqs)
	var next Response
	var ok bool
	if len(m.queue) > 0 {
		next, m.queue = m.queue[0], m.queue[1:]
		ok = true
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if !ok {
			errCh <- fmt.Errorf("mock decider: script exhausted after %d calls", calls)
			return
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- next:
		}
	}()
	return respCh, errCh
}

// Info implements Decider.
func (m *Mock) Info() Info { return m.info }
