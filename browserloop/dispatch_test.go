package browserloop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

// fakeCaller is a test double for the tool-call interface.
type fakeCaller struct {
	results    map[string]ToolResult
	err        error
	lastName   string
	lastParams map[string]any
	calls      int
}

func (f *fakeCaller) CallTool(_ context.Context, name string, params map[string]any) (ToolResult, error) {
	f.calls++
	f.lastName = name
	f.lastParams = params
	if f.err != nil {
		return ToolResult{}, f.err
	}
	return f.results[name], nil
}

func textResult(text string) ToolResult {
	return ToolResult{Content: []ContentItem{{Text: text}}}
}

func newTestDispatcher(t *testing.T, caller *fakeCaller) (*Dispatcher, *bytes.Buffer) {
	t.Helper()
	var transcript bytes.Buffer
	d := NewDispatcher(caller, nil, &DispatcherConfig{
		Transcript:    &transcript,
		ScreenshotDir: t.TempDir(),
	})
	return d, &transcript
}

func TestDispatchLaunchRecordsSession(t *testing.T) {
	caller := &fakeCaller{results: map[string]ToolResult{
		ToolLaunchBrowser: textResult("sess-123"),
	}}
	d, _ := newTestDispatcher(t, caller)
	session := NewSessionTracker()

	observation, err := d.Dispatch(context.Background(), Action{
		Tool:       ToolLaunchBrowser,
		Parameters: map[string]any{"url": "http://example.com"},
	}, session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id, known := session.Get(); !known || id != "sess-123" {
		t.Errorf("expected session set to sess-123, got %q", id)
	}
	if !strings.Contains(observation, "sess-123") {
		t.Errorf("observation should embed the session id: %q", observation)
	}
}

func TestDispatchInjectsSessionOverwriting(t *testing.T) {
	caller := &fakeCaller{results: map[string]ToolResult{
		ToolClickSelector: textResult("clicked"),
	}}
	d, _ := newTestDispatcher(t, caller)
	session := NewSessionTracker()
	session.Set("live-session")

	observation, err := d.Dispatch(context.Background(), Action{
		Tool: ToolClickSelector,
		Parameters: map[string]any{
			"selector":   "#submit",
			"session_id": "stale-session",
		},
	}, session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := caller.lastParams["session_id"]; got != "live-session" {
		t.Errorf("expected stale session id overwritten, got %v", got)
	}
	if got := caller.lastParams["selector"]; got != "#submit" {
		t.Errorf("other parameters should pass through, got %v", got)
	}
	if observation != "clicked" {
		t.Errorf("expected raw result text as observation, got %q", observation)
	}
}

func TestDispatchWithoutSessionPassesThrough(t *testing.T) {
	caller := &fakeCaller{results: map[string]ToolResult{
		"press_key": textResult("ok"),
	}}
	d, _ := newTestDispatcher(t, caller)

	_, err := d.Dispatch(context.Background(), Action{
		Tool:       "press_key",
		Parameters: map[string]any{"key": "Enter"},
	}, NewSessionTracker())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := caller.lastParams["session_id"]; present {
		t.Error("no session id should be injected when none is known")
	}
}

func TestDispatchScreenshot(t *testing.T) {
	caller := &fakeCaller{results: map[string]ToolResult{
		ToolTakeScreenshot: {Content: []ContentItem{{
			ImageData: []byte{0x89, 'P', 'N', 'G'},
			MIMEType:  "image/png",
		}}},
	}}
	dir := t.TempDir()
	var transcript bytes.Buffer
	d := NewDispatcher(caller, nil, &DispatcherConfig{Transcript: &transcript, ScreenshotDir: dir})
	session := NewSessionTracker()
	session.Set("abc")

	observation, err := d.Dispatch(context.Background(), Action{
		Tool:       ToolTakeScreenshot,
		Parameters: map[string]any{},
	}, session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := caller.lastParams["session_id"]; got != "abc" {
		t.Errorf("screenshot call should carry the session id, got %v", got)
	}
	if !strings.Contains(observation, "Screenshot captured") {
		t.Errorf("expected fixed textual observation, got %q", observation)
	}
	if strings.Contains(observation, "PNG") {
		t.Error("raw image bytes must never reach the observation")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading screenshot dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".png") {
		t.Errorf("expected one saved .png, got %v", entries)
	}
}

func TestDispatchErrorPropagates(t *testing.T) {
	wantErr := errors.New("endpoint unreachable")
	caller := &fakeCaller{err: wantErr}
	d, _ := newTestDispatcher(t, caller)

	_, err := d.Dispatch(context.Background(), Action{
		Tool:       ToolGetPageContent,
		Parameters: map[string]any{},
	}, NewSessionTracker())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the caller error to propagate, got %v", err)
	}
	if !strings.Contains(err.Error(), ToolGetPageContent) {
		t.Errorf("error should name the tool: %v", err)
	}
	if caller.calls != 1 {
		t.Errorf("expected exactly one attempt (no retries), got %d", caller.calls)
	}
}

func TestDispatchTruncatesLongObservation(t *testing.T) {
	long := strings.Repeat("x", fallbackObservationChars*2)
	caller := &fakeCaller{results: map[string]ToolResult{
		"press_key": textResult(long),
	}}
	d, _ := newTestDispatcher(t, caller)

	observation, err := d.Dispatch(context.Background(), Action{
		Tool:       "press_key",
		Parameters: map[string]any{},
	}, NewSessionTracker())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(observation) >= len(long) {
		t.Error("observation should be truncated")
	}
	if !strings.Contains(observation, "omitted") {
		t.Errorf("expected an omission marker, got %q", observation[:80])
	}
}

func TestDispatchEchoesBeforeExecution(t *testing.T) {
	caller := &fakeCaller{results: map[string]ToolResult{
		ToolScrollPage: textResult("scrolled"),
	}}
	d, transcript := newTestDispatcher(t, caller)

	_, err := d.Dispatch(context.Background(), Action{
		Tool:       ToolScrollPage,
		Parameters: map[string]any{"direction": "down"},
	}, NewSessionTracker())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := transcript.String()
	execIdx := strings.Index(out, fmt.Sprintf("Executing: %s", ToolScrollPage))
	resultIdx := strings.Index(out, "Result: scrolled")
	if execIdx < 0 || resultIdx < 0 || execIdx > resultIdx {
		t.Errorf("transcript should echo invocation before result:\n%s", out)
	}
	if !strings.Contains(out, `"direction": "down"`) {
		t.Errorf("transcript should echo parameters:\n%s", out)
	}
}
