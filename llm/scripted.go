package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ScriptedBackend replays a fixed sequence of responses. It satisfies Backend
// and records every batch of messages it receives, which makes loop behavior
// fully deterministic in tests and fixture-driven CLI runs.
type ScriptedBackend struct {
	responses []string
	idx       int
	calls     [][]Message
	mu        sync.Mutex
}

// NewScriptedBackend creates a ScriptedBackend over the given responses.
func NewScriptedBackend(responses ...string) *ScriptedBackend {
	return &ScriptedBackend{responses: append([]string(nil), responses...)}
}

// ScriptedBackendFromFile loads responses from a JSON file containing a list
// of strings.
func ScriptedBackendFromFile(path string) (*ScriptedBackend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read responses file: %w", err)
	}
	var responses []string
	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("responses file must contain a JSON list of strings: %w", err)
	}
	return NewScriptedBackend(responses...), nil
}

// Send returns the next scripted response. Once the script is exhausted it
// fails with a ScriptExhaustedError rather than looping forever.
func (b *ScriptedBackend) Send(_ context.Context, messages []Message) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	recorded := make([]Message, len(messages))
	copy(recorded, messages)
	b.calls = append(b.calls, recorded)

	if b.idx >= len(b.responses) {
		return "", &ScriptExhaustedError{BackendError: BackendError{
			Message: fmt.Sprintf("scripted backend exhausted after %d responses", len(b.responses)),
		}}
	}
	resp := b.responses[b.idx]
	b.idx++
	return resp, nil
}

// Calls returns a copy of every message batch received so far.
func (b *ScriptedBackend) Calls() [][]Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	calls := make([][]Message, len(b.calls))
	copy(calls, b.calls)
	return calls
}

// Remaining reports how many scripted responses have not been consumed.
func (b *ScriptedBackend) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.responses) - b.idx
}
