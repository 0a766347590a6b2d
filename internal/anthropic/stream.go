package anthropic

import "fmt"

// StreamEvent is the JSON body of one data line of a Messages API stream.
// The SSE "event:" line repeats Type and is not needed.
type StreamEvent struct {
	Type    string       `json:"type"`
	Index   int          `json:"index"`
	Message *MessageInfo `json:"message,omitempty"`
	Delta   *EventDelta  `json:"delta,omitempty"`
	Usage   *Usage       `json:"usage,omitempty"`
	Error   *APIError    `json:"error,omitempty"`
}

type MessageInfo struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Role  string `json:"role"`
	Usage Usage  `json:"usage"`
}

// EventDelta is shared by content_block_delta (Type, Text) and
// message_delta (StopReason).
type EventDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	StopReason string `json:"stop_reason"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("error from Anthropic API: type=%s message=%s", e.Type, e.Message)
}

func (e StreamEvent) Text() string {
	if e.Type != "content_block_delta" || e.Delta == nil || e.Delta.Type != "text_delta" {
		return ""
	}
	return e.Delta.Text
}

func (e StreamEvent) Err() error {
	if e.Type != "error" {
		return nil
	}
	if e.Error == nil {
		return &APIError{Type: "unknown_error"}
	}
	return e.Error
}
