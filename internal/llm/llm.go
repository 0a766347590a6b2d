package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/davidhbaek/llmstream/internal/anthropic"
	"github.com/davidhbaek/llmstream/internal/attach"
	"github.com/davidhbaek/llmstream/internal/openai"
	"github.com/davidhbaek/llmstream/internal/wire"
)

type Client interface {
	// Stream the reply to messages into w as it arrives and return the full text
	SendMessage(ctx context.Context, messages []wire.Message, systemPrompt string, w io.Writer) (string, error)
	// Return the underlying LLM being prompted
	Model() string
}

// Enforce interface compliance
var (
	_ Client = &openai.Client{}
	_ Client = &anthropic.Client{}
)

// ImageContent converts a loaded image into the content part the provider
// expects.
func ImageContent(provider Provider, img attach.Image) wire.Content {
	data := base64.StdEncoding.EncodeToString(img.Data)

	if provider == OpenAI {
		return &wire.OpenAIImage{
			Type:     "image_url",
			ImageURL: wire.ImageURL{URL: fmt.Sprintf("data:%s;base64,%s", img.MediaType, data)},
		}
	}

	return &wire.AnthropicImage{
		Type: "image",
		Source: wire.ImageSource{
			Type:      "base64",
			MediaType: img.MediaType,
			Data:      data,
		},
	}
}
