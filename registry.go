// File: lixenwraith/properties/registry.go
package properties

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Converter turns a value of one registered type into text and back.
type Converter interface {
	Format(v any) (string, error)
	Parse(s string) (any, error)
}

// Built-in type names, as they appear in persisted files.
const (
	TypeNameString   = "string"
	TypeNameInt      = "int"
	TypeNameFloat    = "float"
	TypeNameBool     = "bool"
	TypeNameFile     = "file"
	TypeNameURL      = "url"
	TypeNameDuration = "duration"
)

// Composite declared types. Lists of any element type are declared as ListType,
// sub-tables as TableType.
var (
	ListType   = reflect.TypeOf([]any(nil))
	TableType  = reflect.TypeOf((*Properties)(nil))
	stringType = reflect.TypeOf("")
)

// registration binds a type name, its Go type and the converter between them
type registration struct {
	name      string
	typ       reflect.Type
	converter Converter
}

// Registry maps declared types to converters. It is safe for concurrent use.
// A Registry is constructed once and passed to the trees, codecs and handles that need it.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]registration
	byName map[string]registration
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// NewRegistry creates a registry preloaded with the built-in scalar converters.
func NewRegistry() *Registry {
	r := &Registry{
		byType: make(map[reflect.Type]registration),
		byName: make(map[string]registration),
	}
	r.Register(TypeNameString, stringType, stringConverter{})
	r.Register(TypeNameInt, reflect.TypeOf(0), intConverter{})
	r.Register(TypeNameFloat, reflect.TypeOf(float64(0)), floatConverter{})
	r.Register(TypeNameBool, reflect.TypeOf(false), boolConverter{})
	r.Register(TypeNameFile, reflect.TypeOf(FilePath("")), filePathConverter{})
	r.Register(TypeNameURL, reflect.TypeOf((*url.URL)(nil)), urlConverter{})
	r.Register(TypeNameDuration, reflect.TypeOf(time.Duration(0)), durationConverter{})
	return r
}

// DefaultRegistry returns the registry used by trees created without an explicit one.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register binds name and typ to converter, replacing any earlier registration of either.
func (r *Registry) Register(name string, typ reflect.Type, converter Converter) error {
	if name == "" {
		return fmt.Errorf("converter type name cannot be empty")
	}
	if typ == nil || converter == nil {
		return fmt.Errorf("converter registration for %q requires a type and a converter", name)
	}
	if typ == ListType || typ == TableType {
		return fmt.Errorf("type %s is composite and cannot have a scalar converter", typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reg := registration{name: name, typ: typ, converter: converter}
	if old, exists := r.byName[name]; exists {
		delete(r.byType, old.typ)
	}
	if old, exists := r.byType[typ]; exists {
		delete(r.byName, old.name)
	}
	r.byType[typ] = reg
	r.byName[name] = reg
	return nil
}

// Lookup returns the converter registered for typ.
func (r *Registry) Lookup(typ reflect.Type) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byType[typ]
	return reg.converter, ok
}

// LookupName returns the type and converter registered under name.
func (r *Registry) LookupName(name string) (reflect.Type, Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	return reg.typ, reg.converter, ok
}

// TypeName returns the persisted name of typ.
func (r *Registry) TypeName(typ reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byType[typ]
	return reg.name, ok
}

// Names returns all registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// convert parses s into typ using the registered converter.
func (r *Registry) convert(typ reflect.Type, s string) (any, error) {
	c, ok := r.Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrConverterMissing, typ)
	}
	return c.Parse(s)
}
