package anthropic

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

const maxTokens = 2048

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
		logger:    logger.With("provider", "anthropic", "model", model),
	}
}

func (c *Client) Model() string {
	return c.model
}

// NewRequest builds a streaming Messages API request.
func (c *Client) NewRequest(ctx context.Context, messages []wire.Message, systemPrompt string) (*http.Request, error) {
	reqBody, err := json.Marshal(struct {
		Model        string         `json:"model"`
		MaxTokens    int            `json:"max_tokens"`
		SystemPrompt string         `json:"system,omitempty"`
		Messages     []wire.Message `json:"messages"`
		Stream       bool           `json:"stream"`
	}{
		Model:        c.model,
		MaxTokens:    maxTokens,
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Stream:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.BaseURL, "/"), "v1/messages")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", APIVersion)
	req.Header.Set("Accept", "text/event-stream")

	return req, nil
}

// SendMessage streams the reply to messages into w and returns the full text.
// The Messages API has no terminal data line; the stream ends when the
// server closes the response after message_stop.
func (c *Client) SendMessage(ctx context.Context, messages []wire.Message, systemPrompt string, w io.Writer) (string, error) {
	req, err := c.NewRequest(ctx, messages, systemPrompt)
	if err != nil {
		return "", err
	}

	h := stream.New[StreamEvent](c.transport, stream.WithLogger(c.logger))
	text, err := stream.Collect(ctx, h, req, w)
	if err != nil {
		return text, fmt.Errorf("streaming message: %w", err)
	}

	return text, nil
}
