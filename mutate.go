// FILE: lixenwraith/properties/mutate.go
package properties

import (
	"fmt"
	"reflect"
)

// Set stores value under key, deriving the declared type from the value.
// A nil value removes the entry. Setting a value equal to the default removes the
// local entry so the default shows through.
func (p *Properties) Set(key string, value any) error {
	v, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("failed to set '%s': %w", key, err)
	}
	return p.SetTyped(key, typeOfValue(v), v)
}

// SetTyped stores value under key with an explicit declared type.
func (p *Properties) SetTyped(key string, typ reflect.Type, value any) error {
	if p.readOnly.Load() {
		return fmt.Errorf("failed to set '%s': %w", key, ErrReadOnly)
	}

	v, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("failed to set '%s': %w", key, err)
	}
	if v == nil {
		typ = nil
	} else if typ == nil {
		typ = typeOfValue(v)
	} else if !compatibleType(typ, typeOfValue(v)) {
		return fmt.Errorf("failed to set '%s': %w: value of type %T is not a %s", key, ErrTypeMismatch, value, typ)
	}
	// Tables are copied before taking the lock; the source may belong to this tree.
	v = detachValue(v)

	p.state.mu.Lock()
	changed, err := p.putLocked(key, typ, v)
	p.state.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to set '%s': %w", key, err)
	}
	if changed == nil {
		return nil
	}
	return notifyChange(changed)
}

// Remove deletes the local value for key, exposing the default if any.
func (p *Properties) Remove(key string) error {
	return p.SetTyped(key, nil, nil)
}

// putLocked stores value and returns the deepest table that changed, or nil when
// nothing did. Caller holds the tree write lock.
func (p *Properties) putLocked(key string, typ reflect.Type, value any) (*Properties, error) {
	sk := parseKey(key)
	switch sk.kind {
	case keyTable:
		sub, created, err := p.subTableLocked(sk.name, value != nil)
		if err != nil || sub == nil {
			return nil, err
		}
		changed, err := sub.putLocked(sk.sub, typ, value)
		if err != nil {
			if created {
				delete(p.entries, sk.name)
				delete(p.types, sk.name)
			}
			return nil, err
		}
		if changed == nil && created {
			changed = p
		}
		return changed, nil

	case keyList:
		return p.putElementLocked(sk, typ, value)
	}
	return p.putPlainLocked(key, typ, value)
}

func (p *Properties) putPlainLocked(key string, typ reflect.Type, value any) (*Properties, error) {
	expected := p.types[key]
	if expected == nil {
		if _, dt, ok := p.resolveDefault(key); ok {
			expected = dt
		}
	}
	if !compatibleType(expected, typ) {
		return nil, fmt.Errorf("%w: '%s' is declared %s, got %s", ErrTypeMismatch, key, expected, typ)
	}

	old, exists := p.entries[key]
	remove := value == nil
	if !remove && typ != TableType {
		if def, _, ok := p.resolveDefault(key); ok && valuesEqual(value, def) {
			remove = true
		}
	}

	if remove {
		if !exists {
			return nil, nil
		}
		delete(p.entries, key)
		delete(p.types, key)
		return p, nil
	}

	if exists && p.types[key] == typ && valuesEqual(old, value) {
		return nil, nil
	}
	p.entries[key] = adoptValue(p, key, value)
	p.types[key] = typ
	return p, nil
}

func (p *Properties) putElementLocked(sk structuredKey, typ reflect.Type, value any) (*Properties, error) {
	var list []any
	switch cur := p.entries[sk.name].(type) {
	case []any:
		list = cur
	case nil:
		if value == nil {
			return nil, nil
		}
		def, dt, ok := p.resolveDefault(sk.name)
		if ok && dt != ListType {
			return nil, fmt.Errorf("%w: '%s' is declared %s, not a list", ErrTypeMismatch, sk.name, dt)
		}
		if dl, isList := def.([]any); isList {
			list = detachValue(dl).([]any)
		}
	default:
		return nil, fmt.Errorf("%w: '%s' holds %T, not a list", ErrTypeMismatch, sk.name, cur)
	}

	if sk.rest != "" {
		var elem *Properties
		if sk.index < len(list) && list[sk.index] != nil {
			et, ok := list[sk.index].(*Properties)
			if !ok {
				return nil, fmt.Errorf("%w: element %d of '%s' is not a table", ErrTypeMismatch, sk.index, sk.name)
			}
			elem = et
		}
		created := elem == nil
		if created {
			if value == nil {
				return nil, nil
			}
			elem = newChild(p, elementKey(sk.name, sk.index))
		}
		changed, err := elem.putLocked(sk.rest, typ, value)
		if err != nil {
			return nil, err
		}
		if created {
			list = growList(list, sk.index)
			list[sk.index] = elem
			p.storeListLocked(sk.name, list)
			if changed == nil {
				changed = p
			}
		}
		return changed, nil
	}

	if value == nil {
		if sk.index >= len(list) || list[sk.index] == nil {
			return nil, nil
		}
		list[sk.index] = nil
		p.storeListLocked(sk.name, list)
		return p, nil
	}
	if typ == ListType {
		return nil, fmt.Errorf("%w: element %d of '%s' cannot be a list", ErrTypeMismatch, sk.index, sk.name)
	}
	if sk.index < len(list) && typeOfValue(list[sk.index]) == typeOfValue(value) && valuesEqual(list[sk.index], value) {
		return nil, nil
	}

	list = growList(list, sk.index)
	list[sk.index] = adoptValue(p, elementKey(sk.name, sk.index), value)
	p.storeListLocked(sk.name, list)
	return p, nil
}

func (p *Properties) storeListLocked(name string, list []any) {
	for i, e := range list {
		if et, ok := e.(*Properties); ok && et.parent != p {
			adoptTable(et, p, elementKey(name, i))
		}
	}
	p.entries[name] = list
	p.types[name] = ListType
}

// growList extends list with nil placeholders so that index is valid.
func growList(list []any, index int) []any {
	for len(list) <= index {
		list = append(list, nil)
	}
	return list
}

// subTableLocked returns the sub-table stored under name, creating it when create is set.
func (p *Properties) subTableLocked(name string, create bool) (*Properties, bool, error) {
	switch v := p.entries[name].(type) {
	case *Properties:
		return v, false, nil
	case nil:
	default:
		return nil, false, fmt.Errorf("%w: '%s' holds %T, not a table", ErrTypeMismatch, name, v)
	}
	if !create {
		return nil, false, nil
	}
	if _, dt, ok := p.resolveDefault(name); ok && dt != TableType {
		return nil, false, fmt.Errorf("%w: '%s' is declared %s, not a table", ErrTypeMismatch, name, dt)
	}

	sub := newChild(p, name)
	p.entries[name] = sub
	p.types[name] = TableType
	return sub, true, nil
}

// detachValue deep-copies the tables inside v into private trees that adoptValue can re-home.
func detachValue(v any) any {
	switch t := v.(type) {
	case *Properties:
		return t.cloneDetached()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = detachValue(e)
		}
		return out
	}
	return v
}

// cloneDetached copies the local contents of p into a new root without defaults.
func (p *Properties) cloneDetached() *Properties {
	p.state.mu.RLock()
	defer p.state.mu.RUnlock()

	c := newRoot(nil, p.registry)
	p.copyIntoLocked(c)
	return c
}

func (p *Properties) copyIntoLocked(dst *Properties) {
	for k, v := range p.entries {
		dst.entries[k] = copyTreeValue(dst, k, v)
		dst.types[k] = p.types[k]
	}
}

func copyTreeValue(parent *Properties, name string, v any) any {
	switch t := v.(type) {
	case *Properties:
		c := newChild(parent, name)
		t.copyIntoLocked(c)
		return c
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyTreeValue(parent, elementKey(name, i), e)
		}
		return out
	}
	return v
}
