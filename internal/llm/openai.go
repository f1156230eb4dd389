package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const statusIncomplete = "incomplete"

// OpenAIClient calls OpenAI's Responses API.
type OpenAIClient struct {
	client openai.Client
	log    *slog.Logger
}

// NewOpenAIClient builds a client for the given API key. Extra request options
// (base URL, HTTP client) are passed through to the SDK.
func NewOpenAIClient(apiKey string, log *slog.Logger, opts ...option.RequestOption) (*OpenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		log:    log,
	}, nil
}

// Complete sends one request without retries. An incomplete response still
// returns whatever text was produced.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", errors.New("model is empty")
	}

	params := responses.ResponseNewParams{
		Model:        req.Model,
		Instructions: openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.Input),
		},
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(req.MaxOutputTokens)
	}

	// The SDK retries twice by default.
	resp, err := c.client.Responses.New(ctx, params, option.WithMaxRetries(0))
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}

	if resp.Status == statusIncomplete {
		c.log.WarnContext(ctx, "Response is incomplete",
			"reason", resp.IncompleteDetails.Reason,
			"model", req.Model,
			"maxOutputTokens", req.MaxOutputTokens)
	}

	return resp.OutputText(), nil
}
