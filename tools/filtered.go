package tools

import "github.com/loopstack/loopstack/content"

// FilteredRegistry decorates a base Registry with an allow/deny view (spec
// §4.2). A name is visible iff it is not in Denied and (Allowed is nil, or
// Allowed contains it).
type FilteredRegistry struct {
	base    *Registry
	allowed map[string]struct{} // nil means "no allow-list restriction"
	denied  map[string]struct{}
}

// NewFilteredRegistry wraps base with the given allow/deny sets. A nil or
// empty allowed slice means every non-denied name is visible.
func NewFilteredRegistry(base *Registry, allowed, denied []string) *FilteredRegistry {
	f := &FilteredRegistry{base: base, denied: toSet(denied)}
	if len(allowed) > 0 {
		f.allowed = toSet(allowed)
	}
	return f
}

func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// IsAllowed is the pure predicate backing every read operation: a name is
// visible iff it is not denied and (no allow-list is set, or it is in the
// allow-list).
func (f *FilteredRegistry) IsAllowed(name string) bool {
	if _, denied := f.denied[name]; denied {
		return false
	}
	if f.allowed == nil {
		return true
	}
	_, ok := f.allowed[name]
	return ok
}

// Get returns the tool registered under name, honoring the filter.
func (f *FilteredRegistry) Get(name string) (Tool, bool) {
	if !f.IsAllowed(name) {
		return nil, false
	}
	return f.base.Get(name)
}

// List returns the sorted names of every visible tool.
func (f *FilteredRegistry) List() []string {
	var out []string
	for _, name := range f.base.List() {
		if f.IsAllowed(name) {
			out = append(out, name)
		}
	}
	return out
}

// All returns every visible tool handle, in name-sorted order.
func (f *FilteredRegistry) All() []Tool {
	var out []Tool
	for _, t := range f.base.All() {
		if f.IsAllowed(t.Name()) {
			out = append(out, t)
		}
	}
	return out
}

// Count reports the number of visible tools.
func (f *FilteredRegistry) Count() int {
	return len(f.List())
}

// ToDefinitions returns a content.ToolDefinition for every visible tool.
func (f *FilteredRegistry) ToDefinitions() []content.ToolDefinition {
	visible := f.All()
	out := make([]content.ToolDefinition, len(visible))
	for i, t := range visible {
		out[i] = content.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		}
	}
	return out
}
