// Package wire holds types that represent anything that goes across a boundary
// Think I/O operations
package wire

type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content interface {
	GetType() string
}

type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var _ Content = &Text{}

func (t *Text) GetType() string {
	return "text"
}

// OpenAIImage references an image by URL or data URL.
type OpenAIImage struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

type ImageURL struct {
	URL string `json:"url"`
}

var _ Content = &OpenAIImage{}

func (i *OpenAIImage) GetType() string {
	return "image_url"
}

// AnthropicImage carries the image bytes inline.
type AnthropicImage struct {
	Type   string      `json:"type"`
	Source ImageSource `json:"source"`
}

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

var _ Content = &AnthropicImage{}

func (i *AnthropicImage) GetType() string {
	return "image"
}

// UserText is a single-part user message.
func UserText(text string) Message {
	return Message{Role: "user", Content: []Content{&Text{Type: "text", Text: text}}}
}

// AssistantText is a single-part assistant message.
func AssistantText(text string) Message {
	return Message{Role: "assistant", Content: []Content{&Text{Type: "text", Text: text}}}
}
