// Command webpilot drives a browser-automation service with a local Ollama
// model: it connects to the service over MCP, feeds the task to the model,
// parses the model's replies into tool calls, and loops until the model
// declares the task complete.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webpilot/browserloop"
	"webpilot/config"
	"webpilot/llmchat"
	"webpilot/mcpbridge"
)

const defaultTask = "Navigate to Ollama's model library, analyze the page content, and extract information about the available models."

var (
	cfgFile       string
	flagServerURL string
	flagModel     string
	flagMaxSteps  int
	flagLogLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "webpilot [task]",
	Short: "Browser automation driven by a local Ollama model",
	Long: `webpilot connects to a browser-automation service over MCP and hands
control to a local Ollama model. The model picks one browser action per turn;
webpilot parses the reply, executes the action, and feeds the result back
until the model reports the task complete.`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.Flags().StringVar(&flagServerURL, "server-url", "", "automation service URL")
	rootCmd.Flags().StringVar(&flagModel, "model", "", "Ollama model name")
	rootCmd.Flags().IntVar(&flagMaxSteps, "max-steps", 0, "maximum tool calls before giving up")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg)

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	task := defaultTask
	if len(args) > 0 && args[0] != "" {
		task = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Connecting to: %s\n", cfg.ServerURL)
	endpoint, err := mcpbridge.Connect(ctx, cfg.ServerURL, logger)
	if err != nil {
		return err
	}
	defer endpoint.Close() //nolint:errcheck

	descriptors, err := endpoint.ListTools(ctx)
	if err != nil {
		return err
	}

	registry := browserloop.NewToolRegistry()
	if err := registry.Load(descriptors); err != nil {
		return err
	}

	history := browserloop.NewHistory(browserloop.DefaultSystemPrompt)
	if err := history.AttachToolCatalog(registry.Catalog()); err != nil {
		return err
	}

	adapter, err := llmchat.NewOllamaAdapter(
		llmchat.WithModel(cfg.Model),
		llmchat.WithEndpoint(cfg.OllamaHost),
		llmchat.WithTemperature(cfg.Temperature),
	)
	if err != nil {
		return err
	}

	client := llmchat.NewClient(
		llmchat.WithProvider("ollama", adapter),
		llmchat.WithMiddleware(llmchat.RetryMiddleware(llmchat.DefaultRetryPolicy(), logger)),
	)
	defer client.Close() //nolint:errcheck

	session := browserloop.NewSessionTracker()
	parser := browserloop.NewParser(registry, logger)
	dispatcher := browserloop.NewDispatcher(endpoint, logger, &browserloop.DispatcherConfig{
		ScreenshotDir: cfg.ScreenshotDir,
	})

	loopCfg := browserloop.DefaultLoopConfig()
	loopCfg.MaxSteps = cfg.MaxSteps

	model := &chatModel{client: client, model: cfg.Model}
	loop := browserloop.NewLoop(model, dispatcher, parser, session, history, &loopCfg, logger)

	fmt.Printf("executing Task: %s\n", task)
	if err := loop.Run(ctx, task); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("Interrupted.")
			return nil
		}
		return err
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if flagServerURL != "" {
		cfg.ServerURL = flagServerURL
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagMaxSteps > 0 {
		cfg.MaxSteps = flagMaxSteps
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// chatModel adapts the llmchat client to the loop's Model interface.
type chatModel struct {
	client *llmchat.Client
	model  string
}

func (m *chatModel) Chat(ctx context.Context, history []browserloop.Message) (browserloop.Message, error) {
	messages := make([]llmchat.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case browserloop.RoleSystem:
			messages = append(messages, llmchat.SystemMessage(msg.Content))
		case browserloop.RoleAI:
			messages = append(messages, llmchat.AssistantMessage(msg.Content))
		default:
			messages = append(messages, llmchat.UserMessage(msg.Content))
		}
	}

	resp, err := m.client.Complete(ctx, llmchat.Request{
		Model:    m.model,
		Messages: messages,
	})
	if err != nil {
		return browserloop.Message{}, err
	}
	return browserloop.AIMessage(resp.Content), nil
}
