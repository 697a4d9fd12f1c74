package llm

import "context"

// Backend is the contract every model backend must satisfy. Send delivers the
// full ordered conversation and blocks until the model's reply text (or an
// error) is available. The agent loop makes exactly one Send call per
// iteration and treats any error as fatal for the run; retry policy, if ever
// wanted, belongs in a Backend implementation, not in the loop.
type Backend interface {
	Send(ctx context.Context, messages []Message) (string, error)
}

// Closer is implemented by backends that hold resources.
type Closer interface {
	Close() error
}
