package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single annotation request.
const DefaultTimeout = 120 * time.Second

// Client sends one comment to a text-completion endpoint and returns the raw reply.
// Implementations make exactly one request per call and never retry.
type Client interface {
	Annotate(ctx context.Context, comment, instructions, model string) (string, error)
}

// Config holds everything needed to construct a Client.
type Config struct {
	Provider    string // "ollama", "openai", "anthropic"
	EndpointURL string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
}

// ErrorKind classifies an annotation failure.
type ErrorKind string

const (
	TransportError ErrorKind = "transport"
	ServiceError   ErrorKind = "service"
	EmptyResponse  ErrorKind = "empty"
)

// AnnotationError is returned by every Client on failure.
type AnnotationError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *AnnotationError) Error() string {
	switch e.Kind {
	case ServiceError:
		return fmt.Sprintf("service returned %d: %s", e.StatusCode, e.Body)
	case EmptyResponse:
		return "response had no content"
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *AnnotationError) Unwrap() error { return e.Err }

// IsKind reports whether err is an AnnotationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AnnotationError
	return errors.As(err, &ae) && ae.Kind == kind
}

// New creates a Client for the configured provider.
func New(cfg Config) (Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		if cfg.EndpointURL == "" {
			cfg.EndpointURL = "http://localhost:11434"
		}
		log.Printf("Using Ollama at %s with model: %s", cfg.EndpointURL, cfg.Model)
		return NewOllamaClient(cfg), nil
	case "openai":
		if cfg.EndpointURL == "" {
			cfg.EndpointURL = "https://api.openai.com"
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		log.Printf("Using OpenAI-compatible endpoint %s with model: %s", cfg.EndpointURL, cfg.Model)
		return NewOpenAIClient(cfg), nil
	case "anthropic", "claude":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key not configured")
		}
		log.Printf("Using Anthropic with model: %s", cfg.Model)
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func chatMessages(instructions, comment string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: instructions},
		{Role: "user", Content: comment},
	}
}

// OllamaClient talks to an Ollama chat endpoint.
type OllamaClient struct {
	BaseURL string
	Model   string
	client  *http.Client
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(cfg Config) *OllamaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OllamaClient{
		BaseURL: strings.TrimRight(cfg.EndpointURL, "/"),
		Model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Annotate sends the comment to Ollama and returns the assistant reply.
func (o *OllamaClient) Annotate(ctx context.Context, comment, instructions, model string) (string, error) {
	if model == "" {
		model = o.Model
	}
	body := map[string]any{
		"model":    model,
		"messages": chatMessages(instructions, comment),
		"stream":   false,
	}

	respBody, err := postJSON(ctx, o.client, o.BaseURL+"/api/chat", body, nil)
	if err != nil {
		return "", err
	}

	// /api/chat answers in message.content; /api/generate style proxies use response.
	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &AnnotationError{Kind: EmptyResponse, Body: string(respBody), Err: fmt.Errorf("decoding response: %w", err)}
	}

	content := strings.TrimSpace(result.Message.Content)
	if content == "" {
		content = strings.TrimSpace(result.Response)
	}
	if content == "" {
		return "", &AnnotationError{Kind: EmptyResponse, Body: string(respBody)}
	}
	return content, nil
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	BaseURL   string
	Model     string
	APIKey    string
	MaxTokens int
	client    *http.Client
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIClient{
		BaseURL:   strings.TrimRight(cfg.EndpointURL, "/"),
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: timeout},
	}
}

// Annotate sends the comment to the chat completions endpoint.
func (o *OpenAIClient) Annotate(ctx context.Context, comment, instructions, model string) (string, error) {
	if model == "" {
		model = o.Model
	}
	body := map[string]any{
		"model":       model,
		"messages":    chatMessages(instructions, comment),
		"stream":      false,
		"temperature": 0,
	}
	if o.MaxTokens > 0 {
		body["max_tokens"] = o.MaxTokens
	}

	headers := map[string]string{"Authorization": "Bearer " + o.APIKey}
	respBody, err := postJSON(ctx, o.client, o.BaseURL+"/v1/chat/completions", body, headers)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &AnnotationError{Kind: EmptyResponse, Body: string(respBody), Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(result.Choices) == 0 {
		return "", &AnnotationError{Kind: EmptyResponse, Body: string(respBody)}
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		content = strings.TrimSpace(result.Choices[0].Text)
	}
	if content == "" {
		return "", &AnnotationError{Kind: EmptyResponse, Body: string(respBody)}
	}
	return content, nil
}

// postJSON performs one POST and returns the body of a 2xx response.
func postJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &AnnotationError{Kind: TransportError, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AnnotationError{Kind: TransportError, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AnnotationError{Kind: ServiceError, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
