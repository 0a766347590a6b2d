package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/davidhbaek/llmstream/internal/stream"
	"github.com/davidhbaek/llmstream/internal/wire"
)

const DefaultBaseURL = "https://api.openai.com"

type Config struct {
	BaseURL string
	APIKey  string
}

type Client struct {
	config    Config
	model     string
	transport stream.Transport
	logger    *slog.Logger
}

func NewClient(model string, config Config, transport stream.Transport, logger *slog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	return &Client{
		config:    config,
		model:     model,
		transport: transport,
		logger:    logger.With("provider", "openai", "model", model),
	}
}

func (c *Client) Model() string {
	return c.model
}

// NewRequest builds a streaming chat completion request.
func (c *Client) NewRequest(ctx context.Context, messages []wire.Message, systemPrompt string) (*http.Request, error) {
	// The OpenAI API doesn't have a separate field for system prompts like the Anthropic API does
	if len(systemPrompt) > 0 {
		messages = append([]wire.Message{{
			Role:    "system",
			Content: []wire.Content{&wire.Text{Type: "text", Text: systemPrompt}},
		}}, messages...)
	}

	reqBody, err := json.Marshal(struct {
		Model    string         `json:"model"`
		Messages []wire.Message `json:"messages"`
		Stream   bool           `json:"stream"`
	}{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.BaseURL, "/"), "v1/chat/completions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	return req, nil
}

// SendMessage streams the completion for messages into w and returns the
// full text.
func (c *Client) SendMessage(ctx context.Context, messages []wire.Message, systemPrompt string, w io.Writer) (string, error) {
	req, err := c.NewRequest(ctx, messages, systemPrompt)
	if err != nil {
		return "", err
	}

	h := stream.New[ChatCompletionChunk](c.transport, stream.WithLogger(c.logger))
	text, err := stream.Collect(ctx, h, req, w)
	if err != nil {
		return text, fmt.Errorf("streaming completion: %w", err)
	}

	return text, nil
}
