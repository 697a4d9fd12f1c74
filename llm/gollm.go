package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/teilomillet/gollm"
)

// GollmBackend is a live Backend over a gollm.LLM instance. The conversation
// is flattened into a single prompt: the system messages become the gollm
// system prompt and the remaining turns are joined with role markers, which is
// what the tag-based tool protocol expects (the model answers in plain text).
type GollmBackend struct {
	provider string
	llm      gollm.LLM
}

// NewGollmBackend creates a GollmBackend for the given provider and model.
// If apiKey is empty, gollm reads it from the provider's environment variable.
func NewGollmBackend(provider, model, apiKey string) (*GollmBackend, error) {
	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxRetries(0), // one call per turn; failures surface to the operator
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		opts = append(opts, gollm.SetAPIKey(apiKey))
	}

	inner, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, &ConfigurationError{BackendError: BackendError{
			Message: fmt.Sprintf("create %s backend", provider),
			Cause:   err,
		}}
	}
	return &GollmBackend{provider: provider, llm: inner}, nil
}

// NewGollmBackendFromLLM wraps an existing gollm.LLM instance.
func NewGollmBackendFromLLM(provider string, inner gollm.LLM) *GollmBackend {
	return &GollmBackend{provider: provider, llm: inner}
}

// Send flattens the conversation, performs a single blocking generation, and
// classifies any failure into the backend error hierarchy.
func (b *GollmBackend) Send(ctx context.Context, messages []Message) (string, error) {
	var systemParts []string
	var parts []string
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case RoleAssistant:
			parts = append(parts, "[Assistant]: "+msg.Content)
		default:
			parts = append(parts, msg.Content)
		}
	}

	promptText := strings.Join(parts, "\n\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if len(systemParts) > 0 {
		promptOpts = append(promptOpts,
			gollm.WithSystemPrompt(strings.TrimSpace(strings.Join(systemParts, "\n")), gollm.CacheTypeEphemeral))
	}

	text, err := b.llm.Generate(ctx, gollm.NewPrompt(promptText, promptOpts...))
	if err != nil {
		return "", b.classifyError(err)
	}
	return text, nil
}

// classifyError converts a gollm error into the backend error hierarchy based
// on the error text, which is all gollm exposes.
func (b *GollmBackend) classifyError(err error) error {
	msg := err.Error()
	pe := ProviderError{
		BackendError: BackendError{Message: msg, Cause: err},
		Provider:     b.provider,
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		pe.StatusCode = 401
		return &AuthenticationError{ProviderError: pe}
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		pe.StatusCode = 403
		return &AccessDeniedError{ProviderError: pe}
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		pe.StatusCode = 404
		return &NotFoundError{ProviderError: pe}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		pe.StatusCode = 429
		return &RateLimitError{ProviderError: pe}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		pe.StatusCode = 413
		return &ContextLengthError{ProviderError: pe}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		pe.StatusCode = 500
		return &ServerError{ProviderError: pe}
	case strings.Contains(lower, "timeout"):
		return &RequestTimeoutError{BackendError: BackendError{Message: msg, Cause: err}}
	case strings.Contains(lower, "content filter") || strings.Contains(lower, "safety"):
		return &ContentFilterError{ProviderError: pe}
	default:
		return &pe
	}
}
