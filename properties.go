// FILE: lixenwraith/properties/properties.go
package properties

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

// treeState is shared by a root table and all of its sub-tables.
type treeState struct {
	mu sync.RWMutex // Protects entries and types of every table in the tree

	batchMu      sync.Mutex
	batchDepth   int
	batchPending bool
}

// Properties is a table of typed values with optional defaults.
//
// Keys address nested tables with `name{key}` and list positions with `name[index]`.
// A lookup that misses locally continues in the structurally parallel table of the
// root's defaults chain. All methods are safe for concurrent use.
type Properties struct {
	state    *treeState
	registry *Registry

	name     string      // key in parent; empty for a root
	parent   *Properties // used only to rebuild this table's path
	defaults *Properties // roots only

	readOnly atomic.Bool

	entries map[string]any          // string, int, float64, bool, FilePath, *url.URL, time.Duration, []any, *Properties
	types   map[string]reflect.Type // declared type per entry

	listenerMu sync.Mutex
	listeners  []listener
}

// EmptyProperties is returned by Table for a missing sub-table. It is read-only,
// has no defaults and is never modified.
var EmptyProperties = newEmpty()

func newEmpty() *Properties {
	p := newRoot(nil, nil)
	p.name = "empty"
	p.readOnly.Store(true)
	return p
}

// newRoot creates a root table; a nil registry selects DefaultRegistry.
func newRoot(defaults *Properties, registry *Registry) *Properties {
	if registry == nil {
		if defaults != nil {
			registry = defaults.registry
		} else {
			registry = DefaultRegistry()
		}
	}
	return &Properties{
		state:    &treeState{},
		registry: registry,
		defaults: defaults,
		entries:  make(map[string]any),
		types:    make(map[string]reflect.Type),
	}
}

// New creates an empty, writable table without defaults.
func New() *Properties {
	return newRoot(nil, nil)
}

// NewWithDefaults creates an empty table that falls back to defaults for missing keys.
func NewWithDefaults(defaults *Properties, readOnly bool) *Properties {
	p := newRoot(defaults, nil)
	p.readOnly.Store(readOnly)
	return p
}

// NewWithRegistry creates an empty table whose values are converted with registry.
func NewWithRegistry(defaults *Properties, registry *Registry) *Properties {
	return newRoot(defaults, registry)
}

// newChild creates a sub-table of parent under name. Caller holds the tree lock.
func newChild(parent *Properties, name string) *Properties {
	child := &Properties{
		state:    parent.state,
		registry: parent.registry,
		name:     name,
		parent:   parent,
		entries:  make(map[string]any),
		types:    make(map[string]reflect.Type),
	}
	child.readOnly.Store(parent.readOnly.Load())
	return child
}

// IsReadOnly reports whether mutations are rejected.
func (p *Properties) IsReadOnly() bool {
	return p.readOnly.Load()
}

// SetReadOnly makes this table and its current sub-tables read-only. It cannot be undone.
func (p *Properties) SetReadOnly() {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	p.setReadOnlyLocked()
}

func (p *Properties) setReadOnlyLocked() {
	p.readOnly.Store(true)
	for _, v := range p.entries {
		switch t := v.(type) {
		case *Properties:
			t.setReadOnlyLocked()
		case []any:
			for _, e := range t {
				if et, ok := e.(*Properties); ok {
					et.setReadOnlyLocked()
				}
			}
		}
	}
}

// Name returns the key of this table in its parent, empty for a root table.
func (p *Properties) Name() string {
	return p.name
}

// Parent returns the enclosing table, nil for a root table.
func (p *Properties) Parent() *Properties {
	return p.parent
}

// Defaults returns the defaults table of this tree's root.
func (p *Properties) Defaults() *Properties {
	return p.root().defaults
}

// Registry returns the converter registry used by this table.
func (p *Properties) Registry() *Registry {
	return p.registry
}

// Keys returns the local keys of this table in sorted order.
func (p *Properties) Keys() []string {
	p.state.mu.RLock()
	defer p.state.mu.RUnlock()
	return p.keysLocked()
}

func (p *Properties) keysLocked() []string {
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key resolves to a value stored in this tree, ignoring defaults.
func (p *Properties) Has(key string) bool {
	p.state.mu.RLock()
	defer p.state.mu.RUnlock()
	_, _, _, _, found := p.lookupLocked(key)
	return found
}

// Len returns the number of local entries.
func (p *Properties) Len() int {
	p.state.mu.RLock()
	defer p.state.mu.RUnlock()
	return len(p.entries)
}

// root walks up to the table that owns the defaults chain.
func (p *Properties) root() *Properties {
	r := p
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// removeAll drops every local entry and its declared type.
func (p *Properties) removeAll() {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	p.entries = make(map[string]any)
	p.types = make(map[string]reflect.Type)
}

// replaceFrom swaps the contents of root table p for those of the detached tree src.
// No notification is emitted. src must not be used afterwards.
func (p *Properties) replaceFrom(src *Properties) {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()

	p.entries = make(map[string]any, len(src.entries))
	p.types = make(map[string]reflect.Type, len(src.types))
	for k, v := range src.entries {
		p.entries[k] = adoptValue(p, k, v)
		p.types[k] = src.types[k]
	}
}

// adoptValue re-homes tables inside v into the tree of parent.
func adoptValue(parent *Properties, name string, v any) any {
	switch t := v.(type) {
	case *Properties:
		adoptTable(t, parent, name)
		return t
	case []any:
		for i, e := range t {
			if et, ok := e.(*Properties); ok {
				adoptTable(et, parent, elementKey(name, i))
			}
		}
		return t
	default:
		return v
	}
}

func adoptTable(t *Properties, parent *Properties, name string) {
	t.state = parent.state
	t.registry = parent.registry
	t.parent = parent
	t.name = name
	t.defaults = nil
	t.readOnly.Store(parent.readOnly.Load())
	for k, v := range t.entries {
		t.entries[k] = adoptValue(t, k, v)
	}
}

// detached creates an empty root sharing p's defaults and registry, used as a load target.
func (p *Properties) detached() *Properties {
	return newRoot(p.root().defaults, p.registry)
}
