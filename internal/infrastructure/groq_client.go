package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GroqClient implements interfaces.AIClient against Groq's
// OpenAI-compatible Chat Completions API.
// It is immutable after construction and safe for concurrent use.
type GroqClient struct {
	model      string
	baseURL    string
	httpClient *http.Client
	client     openai.Client
}

type GroqOption func(*GroqClient)

func WithBaseURL(baseURL string) GroqOption {
	return func(c *GroqClient) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) GroqOption {
	return func(c *GroqClient) {
		c.httpClient = httpClient
	}
}

// NewGroqClient builds the provider client once at startup.
// Retries are disabled: a failed call is reported to the caller as-is.
func NewGroqClient(apiKey, model string, opts ...GroqOption) (*GroqClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("groq: api key must not be empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("groq: model must not be empty")
	}

	c := &GroqClient{
		model:   model,
		baseURL: "https://api.groq.com/openai/v1",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		return nil, errors.New("groq: base url must not be empty")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(c.baseURL),
		option.WithMaxRetries(0),
	}
	if c.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(c.httpClient))
	}
	c.client = openai.NewClient(reqOpts...)

	return c, nil
}

// Model returns the fixed model identifier requests are sent with.
func (c *GroqClient) Model() string {
	return c.model
}

// GenerateReply sends prompt as a single user message and returns the
// assistant text of the first choice.
func (c *GroqClient) GenerateReply(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("groq: chat completion: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", errors.New("groq: no choices in response")
	}
	return completion.Choices[0].Message.Content, nil
}

// UpstreamStatusCode extracts the provider's HTTP status from an error
// returned by GenerateReply, if the failure carried one.
func UpstreamStatusCode(err error) (int, bool) {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	return apiErr.StatusCode, true
}
