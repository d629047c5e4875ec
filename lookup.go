// FILE: lixenwraith/properties/lookup.go
package properties

import "reflect"

// lookupLocked resolves key within this tree only. When nothing is found, node and rel
// name the deepest existing table on the key's route and the key relative to it, which is
// where the defaults walk continues. Caller holds the tree lock.
func (p *Properties) lookupLocked(key string) (node *Properties, rel string, val any, typ reflect.Type, found bool) {
	sk := parseKey(key)
	switch sk.kind {
	case keyTable:
		if sub, ok := p.entries[sk.name].(*Properties); ok {
			return sub.lookupLocked(sk.sub)
		}
		return p, key, nil, nil, false

	case keyList:
		list, ok := p.entries[sk.name].([]any)
		if !ok || sk.index >= len(list) || list[sk.index] == nil {
			return p, key, nil, nil, false
		}
		elem := list[sk.index]
		if sk.rest == "" {
			return p, key, elem, typeOfValue(elem), true
		}
		if et, ok := elem.(*Properties); ok {
			return et.lookupLocked(sk.rest)
		}
		return p, key, nil, nil, false
	}

	v, ok := p.entries[key]
	if !ok {
		return p, key, nil, nil, false
	}
	return p, key, v, p.types[key], true
}

// resolve finds key in this tree or, failing that, in the defaults chain.
func (p *Properties) resolve(key string) (any, reflect.Type, bool) {
	p.state.mu.RLock()
	node, rel, val, typ, found := p.lookupLocked(key)
	val = copyValue(val)
	p.state.mu.RUnlock()
	if found {
		return val, typ, true
	}
	return node.resolveDefault(rel)
}

// resolveDefault looks key up in the table of the defaults chain that sits at the same
// path as p. The first defaults tree containing that path answers, even when it does
// not hold key itself; the walk only moves further down the chain while the path is missing.
func (p *Properties) resolveDefault(key string) (any, reflect.Type, bool) {
	if t := p.parallelDefault(); t != nil {
		return t.resolve(key)
	}
	return nil, nil, false
}

// parallelDefault returns the table structurally corresponding to p in the closest
// defaults tree where that path exists, or nil.
func (p *Properties) parallelDefault() *Properties {
	var path []string
	r := p
	for r.parent != nil {
		path = append(path, r.name)
		r = r.parent
	}

	for d := r.defaults; d != nil; d = d.defaults {
		t := d
		for i := len(path) - 1; i >= 0 && t != nil; i-- {
			t = t.tableOrNil(path[i])
		}
		if t != nil {
			return t
		}
	}
	return nil
}

// tableOrNil resolves key, including defaults, and returns it if it is a table.
func (p *Properties) tableOrNil(key string) *Properties {
	v, _, ok := p.resolve(key)
	if !ok {
		return nil
	}
	t, _ := v.(*Properties)
	return t
}

// Value returns the raw value stored for key, consulting defaults.
func (p *Properties) Value(key string) (any, bool) {
	v, _, ok := p.resolve(key)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Type returns the declared type of key, consulting defaults.
func (p *Properties) Type(key string) (reflect.Type, bool) {
	_, typ, ok := p.resolve(key)
	if !ok || typ == nil {
		return nil, false
	}
	return typ, true
}

// Table returns the sub-table at key, or EmptyProperties when there is none.
func (p *Properties) Table(key string) *Properties {
	if t := p.tableOrNil(key); t != nil {
		return t
	}
	return EmptyProperties
}
