package llm

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/davidhbaek/llmstream/internal/anthropic"
	"github.com/davidhbaek/llmstream/internal/config"
	"github.com/davidhbaek/llmstream/internal/openai"
	"github.com/davidhbaek/llmstream/internal/stream"
)

type Provider string

const (
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
)

const (
	OPUS   = "claude-3-opus-20240229"
	SONNET = "claude-3-sonnet-20240229"
	HAIKU  = "claude-3-haiku-20240307"
	GPT4   = "gpt-4-turbo"
	GPT35  = "gpt-3.5-turbo"
)

type Model struct {
	Alias    string
	Name     string
	Provider Provider
}

var models = map[string]Model{
	"haiku":  {Alias: "haiku", Name: HAIKU, Provider: Anthropic},
	"sonnet": {Alias: "sonnet", Name: SONNET, Provider: Anthropic},
	"opus":   {Alias: "opus", Name: OPUS, Provider: Anthropic},
	"gpt":    {Alias: "gpt", Name: GPT4, Provider: OpenAI},
	"gpt3":   {Alias: "gpt3", Name: GPT35, Provider: OpenAI},
}

// Models lists the registered models sorted by alias.
func Models() []Model {
	out := make([]Model, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// Lookup resolves an alias, or a full model name of a registered model.
func Lookup(name string) (Model, error) {
	if m, ok := models[name]; ok {
		return m, nil
	}
	for _, m := range models {
		if m.Name == name {
			return m, nil
		}
	}

	aliases := make([]string, 0, len(models))
	for _, m := range Models() {
		aliases = append(aliases, m.Alias)
	}
	return Model{}, fmt.Errorf("model must be one of [%s]", strings.Join(aliases, ", "))
}

// NewClient builds the client for m, streaming through transport.
func NewClient(m Model, cfg config.Config, transport stream.Transport, logger *slog.Logger) (Client, error) {
	switch m.Provider {
	case OpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		return openai.NewClient(m.Name, openai.Config{BaseURL: cfg.OpenAIBaseURL, APIKey: cfg.OpenAIAPIKey}, transport, logger), nil
	case Anthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is not set")
		}
		return anthropic.NewClient(m.Name, anthropic.NewConfig(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey), transport, logger), nil
	}
	return nil, fmt.Errorf("unknown provider %q", m.Provider)
}
