package assistant

import (
	"context"
	"eduassist/internal/domain"
	"eduassist/internal/llm"
	"log/slog"
	"strings"
)

const (
	DefaultModel                 = "gpt-4o-mini"
	DefaultMaxOutputTokens int64 = 1024

	ErrorResponse    = "I apologize, but I encountered an error processing your request. Please try again."
	FallbackResponse = "I apologize, but I couldn't generate a proper response. Please try again."
)

// Assistant turns a role, a query and an optional context into one inference
// call. Answer never fails; faults become ErrorResponse.
type Assistant struct {
	client          llm.Client
	model           string
	maxOutputTokens int64
	log             *slog.Logger
}

type Option func(*Assistant)

func WithModel(model string) Option {
	return func(a *Assistant) {
		if model = strings.TrimSpace(model); model != "" {
			a.model = model
		}
	}
}

func WithMaxOutputTokens(n int64) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxOutputTokens = n
		}
	}
}

func New(client llm.Client, log *slog.Logger, opts ...Option) *Assistant {
	a := &Assistant{
		client:          client,
		model:           DefaultModel,
		maxOutputTokens: DefaultMaxOutputTokens,
		log:             log,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Assistant) Answer(
	ctx context.Context,
	query string,
	role string,
	qctx domain.QueryContext,
) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			a.log.ErrorContext(ctx, "Recovered from panic while processing query",
				"panic", r,
				"role", role)

			answer = ErrorResponse
		}
	}()

	if a.client == nil {
		a.log.ErrorContext(ctx, "Failed to process query",
			"error", "inference client is not configured",
			"role", role)

		return ErrorResponse
	}

	text, err := a.client.Complete(ctx, llm.Request{
		Model:           a.model,
		Instructions:    SystemInstruction(role),
		Input:           UserInput(query, qctx),
		MaxOutputTokens: a.maxOutputTokens,
	})
	if err != nil {
		a.log.ErrorContext(ctx, "Failed to process query",
			"error", err,
			"role", role,
			"model", a.model,
			"queryLen", len(query),
			"course", qctx.Course,
			"topic", qctx.Topic)

		return ErrorResponse
	}

	return a.Validate(text, role)
}

// Validate substitutes FallbackResponse for an empty response. Whitespace is
// a response.
func (a *Assistant) Validate(response string, role string) string {
	if response == "" {
		return FallbackResponse
	}

	switch domain.Role(role) {
	case domain.RoleStudent:
		return formatForStudent(response)
	case domain.RoleLecturer:
		return formatForLecturer(response)
	default:
		return response
	}
}

func formatForStudent(response string) string {
	return response
}

func formatForLecturer(response string) string {
	return response
}
