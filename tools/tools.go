// Package tools implements the concurrent tool registry and allow/deny
// filtering decorator described in spec §4.2.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/loopstack/loopstack/content"
)

// Result is the outcome of executing a Tool.
type Result struct {
	Content  string
	IsError  bool
	Metadata map[string]any
}

// Tool is a named, schema-described capability invokable by the model
// (spec §6.2).
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	RequiresApproval(params any) bool
	Execute(ctx context.Context, params any) (Result, error)
}

// Registry is a concurrent mapping from tool name to shared tool handle.
// Views built with NewFilteredRegistry share the underlying map: all views
// observe the same writes, matching the spec's "clone shares state" rule.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t to the registry, validating its schema at registration
// time. A tool whose Schema() is not a well-formed JSON Schema document is
// rejected outright — invalid schemas never make it into a registry that
// could surface them to a model.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tools: tool is required")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tools: tool name is required")
	}
	if err := validateSchema(t.Schema()); err != nil {
		return fmt.Errorf("tools: invalid schema for %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = t
	return nil
}

// Unregister removes the named tool, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered tool handle, in name-sorted order.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Tool, len(names))
	for i, name := range names {
		out[i] = r.tools[name]
	}
	return out
}

// Count reports the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ToDefinitions returns a content.ToolDefinition for every registered tool,
// in name-sorted order, suitable for inclusion in a content.Request.
func (r *Registry) ToDefinitions() []content.ToolDefinition {
	all := r.All()
	out := make([]content.ToolDefinition, len(all))
	for i, t := range all {
		out[i] = content.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		}
	}
	return out
}

func validateSchema(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("schema is empty")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("schema is not valid JSON: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	const resourceName = "tool-schema.json"
	if err := compiler.AddResource(resourceName, doc); err != nil {
		return fmt.Errorf("schema is not a valid JSON Schema resource: %w", err)
	}
	if _, err := compiler.Compile(resourceName); err != nil {
		return fmt.Errorf("schema does not compile: %w", err)
	}
	return nil
}
