package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicClient annotates through the Anthropic Messages API.
type AnthropicClient struct {
	Model     string
	MaxTokens int
	client    anthropic.Client
}

// NewAnthropicClient creates a client. Retries are disabled so that one
// Annotate call is exactly one request.
func NewAnthropicClient(cfg Config) *AnthropicClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.EndpointURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.EndpointURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicClient{
		Model:     cfg.Model,
		MaxTokens: maxTokens,
		client:    anthropic.NewClient(opts...),
	}
}

// Annotate sends the comment with the instructions as system prompt.
func (a *AnthropicClient) Annotate(ctx context.Context, comment, instructions, model string) (string, error) {
	if model == "" {
		model = a.Model
	}
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(a.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: instructions},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(comment)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &AnnotationError{Kind: ServiceError, StatusCode: apiErr.StatusCode, Body: apiErr.Error(), Err: err}
		}
		return "", &AnnotationError{Kind: TransportError, Err: err}
	}

	for _, block := range message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", &AnnotationError{Kind: EmptyResponse}
}
