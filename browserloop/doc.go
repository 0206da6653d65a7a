// Package browserloop implements the action resolution engine and
// conversation loop for MCP-driven browser automation.
//
// A language model proposes the next step in free text; the parser recovers a
// structured Action from it through an ordered list of strategies (fenced JSON,
// function-call syntax, bare JSON, tool-name scan, completion phrase); the
// dispatcher threads the browser session id into the call and executes it
// against the MCP endpoint; the loop feeds the observation back as context for
// the next turn.
//
// The package is organized around these core concepts:
//
//   - ToolRegistry: Tool metadata loaded once from the MCP endpoint.
//   - Parser: Free text in, zero-or-one Action out. Never errors.
//   - SessionTracker: The single active browser session id.
//   - Dispatcher: Session injection, tool invocation, observation shaping.
//   - Loop: The turn-based Running/Done state machine owning the history.
//
// # Quick Start
//
//	registry := browserloop.NewToolRegistry()
//	_ = registry.Load(descriptors)
//	history := browserloop.NewHistory(browserloop.DefaultSystemPrompt)
//	_ = history.AttachToolCatalog(registry.Catalog())
//	session := browserloop.NewSessionTracker()
//	parser := browserloop.NewParser(registry, nil)
//	dispatcher := browserloop.NewDispatcher(caller, nil, nil)
//	loop := browserloop.NewLoop(model, dispatcher, parser, session, history, nil, nil)
//	if err := loop.Run(ctx, "Extract the page title of example.com"); err != nil {
//	    log.Fatal(err)
//	}
package browserloop
