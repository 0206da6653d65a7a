package browserloop

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// ToolDescriptor describes one callable capability exposed by the MCP
// endpoint. The parameter schema is carried opaquely; the engine validates
// structure, not tool semantics.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema,omitempty"`
}

// ToolRegistry holds the tool descriptors listed by the MCP endpoint. It has
// an explicit two-state lifecycle: Empty until Load is called, Loaded after.
// An empty registry is valid; the parser's tool-name scan simply finds
// nothing.
type ToolRegistry struct {
	mu     sync.RWMutex
	order  []string
	tools  map[string]ToolDescriptor
	loaded bool
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]ToolDescriptor),
	}
}

// Load populates the registry from the endpoint's tool listing. It may be
// called once; the descriptors are immutable afterwards.
func (r *ToolRegistry) Load(descriptors []ToolDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return fmt.Errorf("tool registry already loaded")
	}
	for _, d := range descriptors {
		if _, dup := r.tools[d.Name]; dup {
			continue
		}
		r.tools[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	r.loaded = true
	return nil
}

// Loaded reports whether Load has been called.
func (r *ToolRegistry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// ByName returns the descriptor for name. Lookups are read-only and stable
// for the lifetime of the process.
func (r *ToolRegistry) ByName(name string) (ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// AllNames returns the tool names in listing order.
func (r *ToolRegistry) AllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Catalog renders a human-readable tool listing for the system message.
func (r *ToolRegistry) Catalog() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sb strings.Builder
	for i, name := range r.order {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- %s: %s", name, r.tools[name].Description)
	}
	return sb.String()
}
