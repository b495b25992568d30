// Package llm wraps the OpenAI chat-completion API behind a minimal
// client interface so that extraction and translation can be tested
// against fakes.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// Request describes one chat-completion call: a three-message transcript
// (system / optional assistant guidance / user) with deterministic
// sampling. Temperature is sent explicitly even when zero.
type Request struct {
	Model       string
	Temperature float64
	System      string
	Assistant   string
	User        string
}

// Client issues chat-completion requests.
type Client interface {
	// Complete returns the first choice's message content, trimmed.
	Complete(ctx context.Context, req Request) (string, error)
}

// ---------------------------------------------------------------------------
// OpenAI implementation
// ---------------------------------------------------------------------------

// OpenAI implements Client using the OpenAI API.
type OpenAI struct {
	client oai.Client
}

// Option is a functional option for OpenAI.
type Option func(*config)

type config struct {
	baseURL string
	timeout time.Duration
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// NewOpenAI constructs an OpenAI-backed client.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: apiKey must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &OpenAI{client: oai.NewClient(reqOpts...)}, nil
}

// Complete implements Client.
func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		return "", fmt.Errorf("llm: model must not be empty")
	}

	var messages []oai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, oai.SystemMessage(req.System))
	}
	if req.Assistant != "" {
		asst := oai.ChatCompletionAssistantMessageParam{}
		asst.Content.OfString = oai.String(req.Assistant)
		messages = append(messages, oai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
	}
	messages = append(messages, oai.UserMessage(req.User))

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    messages,
		Temperature: param.NewOpt(req.Temperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
