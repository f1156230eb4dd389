package llm

import (
	"context"
)

// Request is a single-turn inference request.
type Request struct {
	// Model is the provider model identifier.
	Model string
	// Instructions is the system-level instruction.
	Instructions string
	// Input is the user-turn content.
	Input string
	// MaxOutputTokens caps the generated output.
	MaxOutputTokens int64
}

// Client issues exactly one inference call per Complete.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
