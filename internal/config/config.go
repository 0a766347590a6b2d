// Package config loads API credentials and stream settings from .env files
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/davidhbaek/llmstream/internal/stream"
)

type Config struct {
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	Debug            bool
	Stream           stream.Config
}

// Load reads the given .env files (".env" when none are given) into the
// process environment without overriding variables that are already set,
// then builds a Config from the environment. Missing files are skipped.
func Load(paths ...string) (Config, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		err := godotenv.Load(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		Stream:           stream.DefaultConfig(),
	}

	if v := os.Getenv("LLM_READ_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing LLM_READ_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("LLM_READ_TIMEOUT must be positive, got %s", v)
		}
		cfg.Stream.ReadTimeout = d
	}

	if v := os.Getenv("LLM_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing LLM_DEBUG: %w", err)
		}
		cfg.Debug = debug
	}

	return cfg, nil
}
