package browserloop

import (
	"strings"
	"testing"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewToolRegistry()
	if r.Loaded() {
		t.Error("new registry should be empty")
	}
	if err := r.Load([]ToolDescriptor{{Name: "a", Description: "first"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Loaded() {
		t.Error("registry should report loaded")
	}
	if err := r.Load([]ToolDescriptor{{Name: "b"}}); err == nil {
		t.Error("second load should fail")
	}
}

func TestRegistryEmptyIsValid(t *testing.T) {
	r := NewToolRegistry()
	if err := r.Load(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d tools", r.Count())
	}
	if r.Catalog() != "" {
		t.Errorf("expected empty catalog, got %q", r.Catalog())
	}
}

func TestRegistryLookupIdempotent(t *testing.T) {
	r := testRegistry(t)
	first, ok := r.ByName(ToolClickSelector)
	if !ok {
		t.Fatal("expected descriptor")
	}
	for i := 0; i < 3; i++ {
		again, ok := r.ByName(ToolClickSelector)
		if !ok || again.Name != first.Name || again.Description != first.Description {
			t.Fatalf("lookup %d returned a different descriptor", i)
		}
	}
	if _, ok := r.ByName("no_such_tool"); ok {
		t.Error("unknown tool should not resolve")
	}
}

func TestRegistryPreservesListingOrder(t *testing.T) {
	r := NewToolRegistry()
	descriptors := []ToolDescriptor{
		{Name: "zeta"}, {Name: "alpha"}, {Name: "mid"},
	}
	if err := r.Load(descriptors); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := r.AllNames()
	for i, d := range descriptors {
		if names[i] != d.Name {
			t.Fatalf("expected order preserved, got %v", names)
		}
	}
}

func TestRegistryCatalog(t *testing.T) {
	r := testRegistry(t)
	catalog := r.Catalog()
	if !strings.Contains(catalog, "- launch_browser: Open a browser session at a URL") {
		t.Errorf("catalog missing entry:\n%s", catalog)
	}
	if got := len(strings.Split(catalog, "\n")); got != r.Count() {
		t.Errorf("expected %d catalog lines, got %d", r.Count(), got)
	}
}
