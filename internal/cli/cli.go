// Package cli is the llm command line: it builds a prompt, streams the
// model's reply to stdout and optionally keeps a chat going on stdin.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/davidhbaek/llmstream/internal/config"
	"github.com/davidhbaek/llmstream/internal/llm"
	"github.com/davidhbaek/llmstream/internal/logger"
	"github.com/davidhbaek/llmstream/internal/stream"
)

type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	client       llm.Client
	model        llm.Model
	logger       *slog.Logger
	userPrompt   string
	systemPrompt string
	images       []string
	docs         []string
	isChat       bool

	// flags
	modelName   string
	envFile     string
	debug       bool
	jsonLogs    bool
	readTimeout time.Duration
}

// usageError marks failures caused by how the command was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func CLI(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := &env{stdin: stdin, stdout: stdout, stderr: stderr}

	cmd := newRootCmd(app)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "parsing args: %v\n", err)
		return 2
	}

	fmt.Fprintf(stderr, "runtime error: %v\n", err)
	return 1
}

func newRootCmd(app *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "llm [prompt]",
		Short: "Stream a completion from an LLM API",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.logger = logger.New(
				logger.WithWriter(app.stderr),
				logger.WithDebug(app.debug),
				logger.WithJSON(app.jsonLogs),
			)
			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if app.userPrompt != "" {
					return &usageError{errors.New("prompt given both as an argument and with --prompt")}
				}
				app.userPrompt = args[0]
			}
			return app.fromArgs()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd.Context())
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	fl := cmd.Flags()
	fl.StringVarP(&app.userPrompt, "prompt", "p", "", "user prompt, or path to a .txt file holding it")
	fl.StringVarP(&app.systemPrompt, "system", "s", "", "system prompt, or path to a .txt file holding it")
	fl.StringVarP(&app.modelName, "model", "m", "haiku", "the model to use (run \"llm models\" for the list)")
	fl.StringArrayVarP(&app.images, "image", "i", nil, "image path or URL to attach (repeatable)")
	fl.StringArrayVarP(&app.docs, "document", "d", nil, "PDF document to add to the system prompt (repeatable)")
	fl.BoolVarP(&app.isChat, "chat", "c", false, "start a live chat that retains conversation history")
	fl.DurationVar(&app.readTimeout, "timeout", 0, "how long to wait for the next bytes of a response (default 300s)")

	pfl := cmd.PersistentFlags()
	pfl.StringVar(&app.envFile, "env-file", ".env", "dotenv file with API keys")
	pfl.BoolVar(&app.debug, "debug", false, "log stream sessions at debug level")
	pfl.BoolVar(&app.jsonLogs, "json-logs", false, "write logs as JSON")

	cmd.AddCommand(newModelsCmd(app))

	return cmd
}

func newModelsCmd(app *env) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the available models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, m := range llm.Models() {
				fmt.Fprintf(app.stdout, "%-8s %-10s %s\n", m.Alias, m.Provider, m.Name)
			}
			return nil
		},
	}
}

func (app *env) fromArgs() error {
	model, err := llm.Lookup(app.modelName)
	if err != nil {
		return &usageError{err}
	}
	app.model = model

	if app.userPrompt == "" && !app.isChat {
		return &usageError{errors.New("a prompt is required unless --chat is set")}
	}
	if app.readTimeout < 0 {
		return &usageError{fmt.Errorf("--timeout must be positive, got %s", app.readTimeout)}
	}

	// Get the prompt text if they're coming from a file
	if app.userPrompt, err = app.readIfFile(app.userPrompt); err != nil {
		return err
	}
	if app.systemPrompt, err = app.readIfFile(app.systemPrompt); err != nil {
		return err
	}

	cfg, err := config.Load(app.envFile)
	if err != nil {
		return err
	}
	if app.readTimeout > 0 {
		cfg.Stream.ReadTimeout = app.readTimeout
	}
	if cfg.Debug && !app.debug {
		app.logger = logger.New(logger.WithWriter(app.stderr), logger.WithDebug(true), logger.WithJSON(app.jsonLogs))
	}

	transport := stream.NewHTTPTransport(nil, cfg.Stream)
	app.client, err = llm.NewClient(model, cfg, transport, app.logger)
	if err != nil {
		return err
	}

	app.logger.Debug("configured client", "model", model.Name, "read_timeout", cfg.Stream.ReadTimeout)
	return nil
}

func (app *env) readIfFile(text string) (string, error) {
	if filepath.Ext(text) != ".txt" {
		return text, nil
	}

	app.logger.Info("reading prompt file", "path", text)
	bytes, err := os.ReadFile(text)
	if err != nil {
		return "", fmt.Errorf("reading prompt file: %w", err)
	}

	return string(bytes), nil
}
