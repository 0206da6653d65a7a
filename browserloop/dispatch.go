package browserloop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ContentItem is one element of a tool-call result: either text or a decoded
// visual payload.
type ContentItem struct {
	Text      string
	ImageData []byte
	MIMEType  string
}

// ToolResult is the normalized result of one tool invocation. Only the first
// content item is consumed by the dispatcher.
type ToolResult struct {
	Content []ContentItem
}

// FirstText returns the text of the first content item, or "".
func (r ToolResult) FirstText() string {
	if len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}

// FirstImage returns the first visual content item, if any.
func (r ToolResult) FirstImage() (ContentItem, bool) {
	for _, item := range r.Content {
		if len(item.ImageData) > 0 {
			return item, true
		}
	}
	return ContentItem{}, false
}

// ToolCaller invokes one tool on the remote automation endpoint.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, params map[string]any) (ToolResult, error)
}

// DispatcherConfig holds optional dispatcher settings.
type DispatcherConfig struct {
	// Transcript receives the per-step echo of tool name, parameters and
	// result. Defaults to os.Stdout.
	Transcript io.Writer
	// ScreenshotDir is where captured screenshots are written for local
	// display. Defaults to the OS temp directory.
	ScreenshotDir string
}

// Dispatcher executes validated actions against the tool-call interface,
// injecting the browser session id where required and shaping the result
// into a textual observation. It performs no retries; invocation failures
// propagate to the loop.
type Dispatcher struct {
	caller        ToolCaller
	transcript    io.Writer
	screenshotDir string
	logger        *zap.Logger
}

// NewDispatcher creates a Dispatcher over the given tool caller.
func NewDispatcher(caller ToolCaller, logger *zap.Logger, config *DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		caller:        caller,
		transcript:    os.Stdout,
		screenshotDir: os.TempDir(),
		logger:        logger,
	}
	if config != nil {
		if config.Transcript != nil {
			d.transcript = config.Transcript
		}
		if config.ScreenshotDir != "" {
			d.screenshotDir = config.ScreenshotDir
		}
	}
	return d
}

// Dispatch executes one action and returns the observation to feed back into
// the conversation. Rules, in order: the session-opening tool records its
// result as the new session id; the screenshot tool surfaces its image
// locally and yields a fixed textual observation; any other tool gets the
// known session id injected into its parameters (overwriting a caller-supplied
// value) or runs as-is when no session exists yet.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, session *SessionTracker) (string, error) {
	params := action.Parameters
	if params == nil {
		params = map[string]any{}
	}

	switch {
	case action.Tool == ToolLaunchBrowser:
		result, err := d.invoke(ctx, action.Tool, params)
		if err != nil {
			return "", err
		}
		id := result.FirstText()
		session.Set(id)
		observation := fmt.Sprintf("Browser launched. Active session id: %s", id)
		d.echoResult(observation)
		return observation, nil

	case action.Tool == ToolTakeScreenshot:
		if id, known := session.Get(); known {
			params["session_id"] = id
		}
		result, err := d.invoke(ctx, action.Tool, params)
		if err != nil {
			return "", err
		}
		d.surfaceScreenshot(result)
		// Raw image bytes never enter the conversation history; the model
		// only sees this fixed summary.
		observation := "Screenshot captured and displayed locally. The browser window shows the current state of the page."
		d.echoResult(observation)
		return observation, nil

	default:
		if id, known := session.Get(); known {
			params["session_id"] = id
		}
		result, err := d.invoke(ctx, action.Tool, params)
		if err != nil {
			return "", err
		}
		raw := result.FirstText()
		d.echoResult(raw)
		return TruncateObservation(raw, action.Tool), nil
	}
}

// invoke echoes the invocation to the transcript and calls the tool.
func (d *Dispatcher) invoke(ctx context.Context, name string, params map[string]any) (ToolResult, error) {
	rendered, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		rendered = []byte("{}")
	}
	fmt.Fprintf(d.transcript, "\nExecuting: %s\nParameters: %s\n", name, rendered)
	d.logger.Info("executing tool",
		zap.String("tool", name),
		zap.Int("parameter_count", len(params)))

	result, err := d.caller.CallTool(ctx, name, params)
	if err != nil {
		d.logger.Error("tool call failed",
			zap.String("tool", name),
			zap.Error(err))
		return ToolResult{}, fmt.Errorf("calling tool %s: %w", name, err)
	}
	return result, nil
}

func (d *Dispatcher) echoResult(text string) {
	fmt.Fprintf(d.transcript, "Result: %s\n", text)
}

// surfaceScreenshot writes the first visual payload to disk so the operator
// can open it. A write failure is not fatal to the step.
func (d *Dispatcher) surfaceScreenshot(result ToolResult) {
	image, ok := result.FirstImage()
	if !ok {
		d.logger.Warn("screenshot result carried no image payload")
		return
	}
	name := fmt.Sprintf("webpilot-screenshot-%d%s", time.Now().UnixNano(), extensionFor(image.MIMEType))
	path := filepath.Join(d.screenshotDir, name)
	if err := os.WriteFile(path, image.ImageData, 0o644); err != nil {
		d.logger.Warn("failed to save screenshot", zap.String("path", path), zap.Error(err))
		return
	}
	fmt.Fprintf(d.transcript, "Screenshot saved to %s\n", path)
	d.logger.Info("screenshot saved", zap.String("path", path))
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
