// File: lixenwraith/properties/convenience.go
package properties

import (
	"fmt"
	"strings"
)

// Quick opens path with defaults taken from a map of structured keys to values.
// This is the shortest way to get a watched, writable handle.
func Quick(path string, defaults map[string]any) (*Persistent, error) {
	b := NewBuilder().WithFile(path)
	if len(defaults) > 0 {
		b = b.WithDefaultValues(defaults)
	}
	return b.Build()
}

// MustQuick is like Quick but panics on error
func MustQuick(path string, defaults map[string]any) *Persistent {
	pp, err := Quick(path, defaults)
	if err != nil {
		panic(fmt.Sprintf("properties initialization failed: %v", err))
	}
	return pp
}

// SetText sets key from its textual form. Text with a registered type name prefix,
// as in the persisted format ("int 5"), uses that type. Otherwise text is parsed as the
// key's declared type, or typed by the same heuristics as untyped file values.
func (p *Properties) SetText(key, text string) error {
	name, _, prefixed := strings.Cut(text, " ")
	_, _, registered := p.registry.LookupName(name)

	if !(prefixed && registered) {
		if typ, ok := p.Type(key); ok && typ != ListType && typ != TableType {
			v, err := p.registry.convert(typ, text)
			if err != nil {
				return fmt.Errorf("failed to set '%s': %w: %v", key, ErrTypeMismatch, err)
			}
			return p.SetTyped(key, typ, v)
		}
	}

	typ, v, err := decodeValue(p.registry, key, text, discardLogger())
	if err != nil {
		return fmt.Errorf("failed to set '%s': %w", key, err)
	}
	return p.SetTyped(key, typ, v)
}
