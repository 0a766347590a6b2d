package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/davidhbaek/llmstream/internal/attach"
	"github.com/davidhbaek/llmstream/internal/llm"
	"github.com/davidhbaek/llmstream/internal/wire"
)

func (app *env) run(ctx context.Context) error {
	attachments, err := attach.Load(ctx, app.images, app.docs, app.logger)
	if err != nil {
		return fmt.Errorf("loading attachments: %w", err)
	}

	systemPrompt := app.systemPrompt
	for _, doc := range attachments.Documents {
		systemPrompt = attach.WrapInXMLTags(doc, "document") + "\n" + systemPrompt
	}

	content := []wire.Content{}
	for _, img := range attachments.Images {
		content = append(content, llm.ImageContent(app.model.Provider, img))
	}

	// Live chat session
	// We'll have the user prompt come from stdin instead of a CLI argument
	if app.isChat {
		return app.runChatSession(ctx, content, systemPrompt)
	}

	content = append(content, &wire.Text{Type: "text", Text: app.userPrompt})
	messages := []wire.Message{{Role: "user", Content: content}}

	if _, err := app.client.SendMessage(ctx, messages, systemPrompt, app.stdout); err != nil {
		fmt.Fprintln(app.stdout)
		return fmt.Errorf("sending prompt: %w", err)
	}
	fmt.Fprintln(app.stdout)

	return nil
}

// runChatSession sends every stdin line as a user turn, keeping the whole
// conversation as context. Attachments go out with the first turn.
func (app *env) runChatSession(ctx context.Context, attachments []wire.Content, systemPrompt string) error {
	fmt.Fprintf(app.stderr, "Chatting with %s. Ctrl-D to quit.\n", app.model.Name)

	chatHistory := []wire.Message{}
	pending := attachments
	if app.userPrompt != "" {
		if err := app.chatTurn(ctx, &chatHistory, &pending, app.userPrompt, systemPrompt); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(app.stdin)
	for {
		fmt.Fprint(app.stderr, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("reading input: %w", err)
			}
			fmt.Fprintln(app.stderr)
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if err := app.chatTurn(ctx, &chatHistory, &pending, input, systemPrompt); err != nil {
			return err
		}
	}
}

func (app *env) chatTurn(ctx context.Context, history *[]wire.Message, pending *[]wire.Content, input, systemPrompt string) error {
	content := append(*pending, &wire.Text{Type: "text", Text: input})
	*pending = nil

	*history = append(*history, wire.Message{Role: "user", Content: content})

	answer, err := app.client.SendMessage(ctx, *history, systemPrompt, app.stdout)
	fmt.Fprintln(app.stdout)
	if err != nil {
		return fmt.Errorf("sending chat message: %w", err)
	}

	*history = append(*history, wire.AssistantText(answer))
	return nil
}
