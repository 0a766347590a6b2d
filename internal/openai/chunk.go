package openai

import "fmt"

// ChatCompletionChunk is one data line of a streamed chat completion.
type ChatCompletionChunk struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	SystemFingerprint string   `json:"system_fingerprint,omitempty"`
	Choices           []Choice `json:"choices"`
	Usage             *Usage   `json:"usage,omitempty"`

	// Error is set instead of the fields above when the API fails after the
	// stream has started.
	Error *APIError `json:"error,omitempty"`
}

type Choice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("error from OpenAI API: %s", e.Message)
	}
	return fmt.Sprintf("error from OpenAI API: type=%s message=%s", e.Type, e.Message)
}

// Text concatenates the content deltas of every choice.
func (c ChatCompletionChunk) Text() string {
	var text string
	for _, choice := range c.Choices {
		text += choice.Delta.Content
	}
	return text
}

func (c ChatCompletionChunk) Err() error {
	if c.Error == nil {
		return nil
	}
	return c.Error
}
