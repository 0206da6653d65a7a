package browserloop

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"
)

// Tool names the parser and dispatcher treat specially. All other tools pass
// through structurally.
const (
	ToolLaunchBrowser   = "launch_browser"
	ToolGetDOMStructure = "get_dom_structure"
	ToolExtractData     = "extract_data"
	ToolClickSelector   = "click_selector"
	ToolClickElement    = "click_element"
	ToolScrollPage      = "scroll_page"
	ToolTypeText        = "type_text"
	ToolTakeScreenshot  = "take_screenshot"
	ToolGetPageContent  = "get_page_content"

	// ToolTaskComplete is the completion sentinel. It is never dispatched.
	ToolTaskComplete = "task_complete"
)

// defaultDOMDepth is used when the model asks for the DOM structure without
// naming a depth.
const defaultDOMDepth = 3

// Action is a structured tool invocation recovered from model output.
type Action struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

// IsCompletion reports whether the action is the completion sentinel.
func (a *Action) IsCompletion() bool {
	return a != nil && a.Tool == ToolTaskComplete
}

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fencedCallPattern = regexp.MustCompile("(?s)```(?:python|tool_code|javascript)?\\s*([A-Za-z_][A-Za-z0-9_]*\\s*\\(.*?\\))\\s*```")

	urlPattern       = regexp.MustCompile(`https?://[^\s"']+`)
	bracketPattern   = regexp.MustCompile(`\[[\S\s]*\]`)
	selectorPattern  = regexp.MustCompile(`"selector":\s*"([^"]+)"`)
	coordinatePair   = regexp.MustCompile(`(?s)"x":\s*(\d+).*?"y":\s*(\d+)`)
	bareIntPattern   = regexp.MustCompile(`\d+`)
	directionPattern = regexp.MustCompile(`"direction":\s*"([^"]+)"`)
)

// Parser recovers structured actions from unstructured model output. It tries
// a fixed list of strategies in precedence order and never returns an error:
// a strategy that cannot produce a structurally valid Action is an explicit
// no-match, and the next strategy runs.
type Parser struct {
	registry *ToolRegistry
	logger   *zap.Logger
}

// NewParser creates a Parser over the given registry. A nil logger defaults
// to a no-op logger.
func NewParser(registry *ToolRegistry, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{registry: registry, logger: logger}
}

// Parse converts one raw model reply into zero-or-one Action. sessionID is
// the currently known browser session id ("" when none). The completion
// phrase is only consulted after every concrete strategy has failed, so a
// reply that both mentions a tool and declares the task complete resolves to
// the tool.
func (p *Parser) Parse(raw, sessionID string) *Action {
	if a, ok := p.parseFencedJSON(raw); ok {
		return a
	}
	if a, ok := p.parseFencedCall(raw); ok {
		return a
	}
	if a, ok := p.parseBareJSON(raw); ok {
		return a
	}
	if a, ok := p.scanToolNames(raw, sessionID); ok {
		return a
	}
	if a, ok := parseCompletion(raw); ok {
		return a
	}
	return nil
}

// parseFencedJSON handles strategy 1: a ```json fenced block holding either
// the protocol-native {"name", "arguments"} shape or {"tool", "parameters"}.
// Malformed fence contents are repaired when possible and skipped otherwise.
func (p *Parser) parseFencedJSON(raw string) (*Action, bool) {
	for _, m := range fencedJSONPattern.FindAllStringSubmatch(raw, -1) {
		obj, ok := p.decodeObject(m[1])
		if !ok {
			continue
		}
		if a, ok := actionFromObject(obj); ok {
			return a, true
		}
	}
	return nil, false
}

// parseFencedCall handles strategy 2: a fenced block written as executable
// call syntax, e.g. toolName(arg1="x", arg2="y").
func (p *Parser) parseFencedCall(raw string) (*Action, bool) {
	for _, m := range fencedCallPattern.FindAllStringSubmatch(raw, -1) {
		if a, ok := actionFromCall(m[1]); ok {
			return a, true
		}
	}
	return nil, false
}

// parseBareJSON handles strategy 3: the raw text is plausibly a JSON object
// on its own. Only the {"tool", "parameters"} shape is accepted here.
func (p *Parser) parseBareJSON(raw string) (*Action, bool) {
	if !strings.Contains(raw, `"parameters"`) {
		return nil, false
	}
	if !strings.Contains(raw, `"tool"`) && !strings.Contains(raw, `"url"`) {
		return nil, false
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	obj, ok := p.decodeObject(raw[start : end+1])
	if !ok {
		return nil, false
	}
	tool, _ := obj["tool"].(string)
	if tool == "" {
		return nil, false
	}
	params, ok := obj["parameters"].(map[string]any)
	if !ok {
		return nil, false
	}
	return &Action{Tool: tool, Parameters: params}, true
}

// scanToolNames handles strategy 4: a literal mention of a known tool name,
// with a tool-specific heuristic extractor applied to the text that follows.
// A tool other than the session-opener is never recovered blind: without a
// known session id the mention is skipped.
func (p *Parser) scanToolNames(raw, sessionID string) (*Action, bool) {
	for _, name := range p.registry.AllNames() {
		idx := strings.Index(raw, name)
		if idx < 0 {
			continue
		}
		if name != ToolLaunchBrowser && sessionID == "" {
			continue
		}
		tail := strings.TrimSpace(raw[idx+len(name):])
		if a, ok := extractHeuristicParams(name, tail, sessionID); ok {
			return a, true
		}
	}
	return nil, false
}

// extractHeuristicParams applies the per-tool extraction rule to the text
// following a matched tool name.
func extractHeuristicParams(name, tail, sessionID string) (*Action, bool) {
	params := map[string]any{}
	lower := strings.ToLower(tail)

	switch name {
	case ToolLaunchBrowser:
		if m := urlPattern.FindString(tail); m != "" {
			params["url"] = m
			return &Action{Tool: name, Parameters: params}, true
		}

	case ToolGetDOMStructure:
		params["max_depth"] = defaultDOMDepth
		params["session_id"] = sessionID
		return &Action{Tool: name, Parameters: params}, true

	case ToolExtractData:
		if m := bracketPattern.FindString(tail); m != "" {
			params["pattern"] = m
			return &Action{Tool: name, Parameters: params}, true
		}

	case ToolClickSelector:
		if strings.Contains(lower, "selector") {
			if m := selectorPattern.FindStringSubmatch(tail); m != nil {
				params["selector"] = m[1]
				return &Action{Tool: name, Parameters: params}, true
			}
		}

	case ToolClickElement:
		if m := coordinatePair.FindStringSubmatch(tail); m != nil {
			params["x"] = m[1]
			params["y"] = m[2]
			return &Action{Tool: name, Parameters: params}, true
		}
		if strings.Contains(lower, "coordinates") {
			if ints := bareIntPattern.FindAllString(tail, 2); len(ints) == 2 {
				params["x"] = ints[0]
				params["y"] = ints[1]
				return &Action{Tool: name, Parameters: params}, true
			}
		}

	case ToolScrollPage:
		if strings.Contains(lower, "direction") {
			if m := directionPattern.FindStringSubmatch(tail); m != nil {
				params["direction"] = m[1]
				return &Action{Tool: name, Parameters: params}, true
			}
		}

	case ToolTypeText:
		// A "text" label is enough to accept; the dispatcher fills in the
		// session context.
		if strings.Contains(tail, `"text"`) {
			return &Action{Tool: name, Parameters: params}, true
		}

	case ToolTakeScreenshot, ToolGetPageContent:
		params["session_id"] = sessionID
		return &Action{Tool: name, Parameters: params}, true
	}

	return nil, false
}

// parseCompletion handles strategy 5: a case-insensitive phrase declaring the
// task finished, mapped to the completion sentinel.
func parseCompletion(raw string) (*Action, bool) {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "task complete") || strings.Contains(lower, "task is complete") {
		return &Action{Tool: ToolTaskComplete, Parameters: map[string]any{}}, true
	}
	return nil, false
}

// decodeObject unmarshals a JSON object, running the text through jsonrepair
// when the first attempt fails. Models hand back unquoted keys, trailing
// commas, and single quotes often enough that the repair pass pays for
// itself.
func (p *Parser) decodeObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, true
	}
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		p.logger.Warn("failed to parse candidate action block",
			zap.Error(err))
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		p.logger.Warn("repaired action block still not a JSON object",
			zap.Error(err))
		return nil, false
	}
	return obj, true
}

// actionFromObject maps a decoded JSON object to an Action. Both the
// protocol-native {"name", "arguments"} shape and the prompt-documented
// {"tool", "parameters"} shape are accepted.
func actionFromObject(obj map[string]any) (*Action, bool) {
	if name, ok := obj["name"].(string); ok && name != "" {
		if rawArgs, present := obj["arguments"]; present {
			if params, ok := parameterMap(rawArgs); ok {
				return &Action{Tool: name, Parameters: params}, true
			}
			return nil, false
		}
	}
	tool, _ := obj["tool"].(string)
	if tool == "" {
		return nil, false
	}
	params, ok := parameterMap(obj["parameters"])
	if !ok {
		return nil, false
	}
	return &Action{Tool: tool, Parameters: params}, true
}

// parameterMap coerces a decoded parameters value into a map. Arguments
// occasionally arrive as a JSON-encoded string instead of an object.
func parameterMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any:
		return t, true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}

// actionFromCall parses executable-call syntax: the substring before the
// first parenthesis is the tool name, the comma-separated key=value pairs
// inside are the parameters, with surrounding quotes stripped from values.
func actionFromCall(call string) (*Action, bool) {
	open := strings.Index(call, "(")
	closing := strings.LastIndex(call, ")")
	if open <= 0 || closing <= open {
		return nil, false
	}
	name := strings.TrimSpace(call[:open])
	if name == "" {
		return nil, false
	}
	params := map[string]any{}
	args := strings.TrimSpace(call[open+1 : closing])
	if args != "" {
		for _, pair := range strings.Split(args, ",") {
			key, value, found := strings.Cut(pair, "=")
			if !found {
				return nil, false
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, false
			}
			params[key] = strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return &Action{Tool: name, Parameters: params}, true
}
