package browserloop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSystemPrompt seeds the conversation before the tool catalog is
// attached.
const DefaultSystemPrompt = `You are an expert browser automation assistant with advanced capabilities for web analysis and data extraction.
You will be given access to browser automation tools and will help navigate websites, extract information, and perform tasks.
You should think step by step, explaining your reasoning, and then decide on the next action to take.`

// reformatPrompt is appended when no action could be recovered from a reply.
const reformatPrompt = "Please provide a specific action to take using one of the available tools. Format your response as a JSON object with 'tool' and 'parameters' fields."

// repetitionPrompt is appended when the recent dispatched actions repeat.
const repetitionPrompt = "The last several actions were identical and are not making progress. Try a different approach or a different tool."

// ErrStepLimit is returned when the loop reaches its configured step limit
// before the model declares the task complete.
var ErrStepLimit = errors.New("step limit reached before task completion")

// Model is the language-model collaborator: one synchronous request/response
// exchange over the full history.
type Model interface {
	Chat(ctx context.Context, history []Message) (Message, error)
}

// LoopState is the conversation loop's lifecycle state.
type LoopState string

const (
	LoopRunning LoopState = "running"
	LoopDone    LoopState = "done"
)

// LoopConfig holds loop settings.
type LoopConfig struct {
	// MaxSteps bounds the number of dispatched tool calls. 0 = unlimited.
	MaxSteps int
	// RepetitionWindow is the number of trailing actions inspected for a
	// repeating pattern. 0 disables the check.
	RepetitionWindow int
	// Transcript receives the per-step echo. Defaults to os.Stdout.
	Transcript io.Writer
}

// DefaultLoopConfig returns the default loop settings.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxSteps:         50,
		RepetitionWindow: 6,
	}
}

// Loop sequences model queries, action parsing, dispatch, and history
// accumulation. It owns the history and session state for the lifetime of one
// run; execution is strictly sequential, suspending only at the model query
// and the tool invocation.
type Loop struct {
	id         string
	model      Model
	parser     *Parser
	dispatcher *Dispatcher
	session    *SessionTracker
	history    *History
	config     LoopConfig
	transcript io.Writer
	logger     *zap.Logger
	state      LoopState
	dispatched []Action
}

// NewLoop assembles a conversation loop from its collaborators. A nil config
// takes defaults; a nil logger is replaced with a no-op logger.
func NewLoop(model Model, dispatcher *Dispatcher, parser *Parser, session *SessionTracker, history *History, config *LoopConfig, logger *zap.Logger) *Loop {
	cfg := DefaultLoopConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	transcript := cfg.Transcript
	if transcript == nil {
		transcript = os.Stdout
	}
	id := uuid.New().String()
	return &Loop{
		id:         id,
		model:      model,
		parser:     parser,
		dispatcher: dispatcher,
		session:    session,
		history:    history,
		config:     cfg,
		transcript: transcript,
		logger:     logger.With(zap.String("run_id", id[:8])),
		state:      LoopRunning,
	}
}

// ID returns the run identifier.
func (l *Loop) ID() string { return l.id }

// State returns the loop's lifecycle state.
func (l *Loop) State() LoopState { return l.state }

// History returns the conversation history owned by this run.
func (l *Loop) History() *History { return l.history }

// Run drives the conversation until the model declares the task complete, an
// unrecoverable error occurs, or ctx is cancelled. Parse failures are
// recoverable: the loop re-prompts instead of failing the run. Dispatch
// failures are fatal to the run.
func (l *Loop) Run(ctx context.Context, task string) error {
	l.history.AppendHuman(fmt.Sprintf("Task: %s\n\nWhat should be my first step?", task))

	steps := 0
	for l.state == LoopRunning {
		select {
		case <-ctx.Done():
			l.logger.Info("run cancelled")
			return ctx.Err()
		default:
		}

		if l.config.MaxSteps > 0 && steps >= l.config.MaxSteps {
			l.logger.Warn("step limit reached", zap.Int("steps", steps))
			return fmt.Errorf("%w after %d steps", ErrStepLimit, steps)
		}

		fmt.Fprintln(l.transcript, "\nSending current state to the model for analysis...")
		reply, err := l.model.Chat(ctx, l.history.Messages())
		if err != nil {
			return fmt.Errorf("model query failed: %w", err)
		}
		fmt.Fprintf(l.transcript, "\nModel analysis:\n%s\n", reply.Content)
		l.history.AppendAI(reply.Content)

		sessionID, _ := l.session.Get()
		action := l.parser.Parse(reply.Content, sessionID)
		if action == nil {
			l.logger.Warn("no action recovered from reply")
			fmt.Fprintln(l.transcript, "\nNo actionable step recognized; asking the model to reformat.")
			l.history.AppendHuman(reformatPrompt)
			continue
		}

		if action.IsCompletion() {
			fmt.Fprintln(l.transcript, "\nTask completed successfully!")
			l.state = LoopDone
			return nil
		}

		steps++
		observation, err := l.dispatcher.Dispatch(ctx, *action, l.session)
		if err != nil {
			l.logger.Error("dispatch failed",
				zap.String("tool", action.Tool),
				zap.Error(err))
			return err
		}
		l.history.AppendHuman(fmt.Sprintf("Action result: %s\n\nWhat should be my next step?", observation))

		l.dispatched = append(l.dispatched, *action)
		if l.config.RepetitionWindow > 0 && DetectRepetition(l.dispatched, l.config.RepetitionWindow) {
			l.logger.Warn("repeated actions detected",
				zap.Int("window", l.config.RepetitionWindow))
			l.history.AppendHuman(repetitionPrompt)
		}
	}
	return nil
}
