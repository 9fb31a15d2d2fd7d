package repository

import (
	"context"
	"strings"
	"sync"

	"goa.design/utcp/pkg/utcptypes"
)

// InMemory is the built-in in_memory Repository: an RWMutex-protected set
// of maps with every read returning a deep copy. toolOrder tracks each
// tool's first-registration order so GetTools can honor the stable,
// insertion-order tie-break search relies on: a plain map range would
// otherwise return tools in Go's randomized iteration order.
type InMemory struct {
	mu        sync.RWMutex
	templates map[string]utcptypes.CallTemplate
	manuals   map[string]*utcptypes.Manual
	tools     map[string]*utcptypes.Tool
	toolOrder []string
}

// NewInMemory constructs an empty in-memory repository.
func NewInMemory() *InMemory {
	return &InMemory{
		templates: make(map[string]utcptypes.CallTemplate),
		manuals:   make(map[string]*utcptypes.Manual),
		tools:     make(map[string]*utcptypes.Tool),
	}
}

// SaveManual implements Repository. template and manual are cloned before
// storage; manual.Tools must already carry fully qualified names.
func (r *InMemory) SaveManual(_ context.Context, template utcptypes.CallTemplate, manual *utcptypes.Manual) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := manual.Name
	if old, ok := r.manuals[name]; ok {
		for _, t := range old.Tools {
			delete(r.tools, t.Name)
			r.toolOrder = removeName(r.toolOrder, t.Name)
		}
	}
	manualCopy := manual.Clone()
	r.manuals[name] = manualCopy
	if template != nil {
		r.templates[name] = template.Clone()
	}
	for _, t := range manualCopy.Tools {
		if _, exists := r.tools[t.Name]; !exists {
			r.toolOrder = append(r.toolOrder, t.Name)
		}
		r.tools[t.Name] = t
	}
	return nil
}

// RemoveManual implements Repository.
func (r *InMemory) RemoveManual(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.manuals[name]
	if !ok {
		return false, nil
	}
	for _, t := range m.Tools {
		delete(r.tools, t.Name)
		r.toolOrder = removeName(r.toolOrder, t.Name)
	}
	delete(r.manuals, name)
	delete(r.templates, name)
	return true, nil
}

// RemoveTool implements Repository.
func (r *InMemory) RemoveTool(_ context.Context, fqName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[fqName]; !ok {
		return false, nil
	}
	delete(r.tools, fqName)
	r.toolOrder = removeName(r.toolOrder, fqName)
	manualName, _, found := strings.Cut(fqName, ".")
	if !found {
		return true, nil
	}
	if m, ok := r.manuals[manualName]; ok {
		kept := m.Tools[:0:0]
		for _, t := range m.Tools {
			if t.Name != fqName {
				kept = append(kept, t)
			}
		}
		m.Tools = kept
	}
	return true, nil
}

// removeName returns order with the first occurrence of name removed,
// preserving the relative order of everything else.
func removeName(order []string, name string) []string {
	for i, n := range order {
		if n == name {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}

// GetTool implements Repository. Returns nil, nil when the tool is absent.
func (r *InMemory) GetTool(_ context.Context, fqName string) (*utcptypes.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[fqName]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

// GetTools implements Repository, returning tools in the order they were
// first registered so callers get a stable tie-break basis.
func (r *InMemory) GetTools(_ context.Context) ([]*utcptypes.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*utcptypes.Tool, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, r.tools[name].Clone())
	}
	return out, nil
}

// GetToolsByManual implements Repository, preserving the manual's tool
// list order.
func (r *InMemory) GetToolsByManual(_ context.Context, manualName string) ([]*utcptypes.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manuals[manualName]
	if !ok {
		return nil, nil
	}
	out := make([]*utcptypes.Tool, len(m.Tools))
	for i, t := range m.Tools {
		out[i] = t.Clone()
	}
	return out, nil
}

// GetManual implements Repository. Returns nil, nil when absent.
func (r *InMemory) GetManual(_ context.Context, name string) (*utcptypes.Manual, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manuals[name]
	if !ok {
		return nil, nil
	}
	return m.Clone(), nil
}

// GetManuals implements Repository.
func (r *InMemory) GetManuals(_ context.Context) ([]*utcptypes.Manual, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*utcptypes.Manual, 0, len(r.manuals))
	for _, m := range r.manuals {
		out = append(out, m.Clone())
	}
	return out, nil
}

// GetManualCallTemplate implements Repository. Returns nil, nil when absent.
func (r *InMemory) GetManualCallTemplate(_ context.Context, name string) (utcptypes.CallTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

// GetManualCallTemplates implements Repository.
func (r *InMemory) GetManualCallTemplates(_ context.Context) ([]utcptypes.CallTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]utcptypes.CallTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t.Clone())
	}
	return out, nil
}
