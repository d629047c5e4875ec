// FILE: lixenwraith/properties/accessors.go
package properties

import (
	"fmt"
	"net/url"
	"reflect"
	"time"
)

// Get returns the value at key converted to T, or def when key resolves nowhere.
// Values declared as string are parsed with the converter registered for T (or for the
// dynamic type of def when T is an interface). Lists convert element-wise to a slice T.
func Get[T any](p *Properties, key string, def T) (T, error) {
	val, typ, found := p.resolve(key)
	if !found || val == nil {
		return def, nil
	}

	target := reflect.TypeOf((*T)(nil)).Elem()
	if target.Kind() == reflect.Interface {
		if dv := any(def); dv != nil {
			target = reflect.TypeOf(dv)
		}
	}

	if s, ok := val.(string); ok && typ == stringType && target != stringType && target.Kind() != reflect.Interface {
		parsed, err := p.registry.convert(target, s)
		if err != nil {
			return def, fmt.Errorf("%w: '%s' holds string %q not convertible to %s: %v", ErrTypeMismatch, key, s, target, err)
		}
		val = parsed
	}

	if list, ok := val.([]any); ok {
		return convertList(p.registry, key, list, def)
	}

	if v, ok := val.(T); ok {
		return v, nil
	}
	if target.Kind() != reflect.Interface {
		rv := reflect.ValueOf(val)
		if cv, ok := convertNumber(rv, target); ok {
			return cv.Interface().(T), nil
		}
		if rv.Type().ConvertibleTo(target) && rv.Kind() == target.Kind() {
			return rv.Convert(target).Interface().(T), nil
		}
	}
	return def, fmt.Errorf("%w: '%s' holds %T, requested %s", ErrTypeMismatch, key, val, target)
}

// convertNumber narrows a stored int or float64 to another builtin numeric kind of the
// same family. Values that do not fit the target are rejected.
func convertNumber(rv reflect.Value, target reflect.Type) (reflect.Value, bool) {
	if target.PkgPath() != "" {
		return reflect.Value{}, false
	}
	zero := reflect.Zero(target)
	switch {
	case rv.CanInt() && zero.CanInt():
		if zero.OverflowInt(rv.Int()) {
			return reflect.Value{}, false
		}
	case rv.CanInt() && zero.CanUint():
		if n := rv.Int(); n < 0 || zero.OverflowUint(uint64(n)) {
			return reflect.Value{}, false
		}
	case rv.CanFloat() && zero.CanFloat():
		if zero.OverflowFloat(rv.Float()) {
			return reflect.Value{}, false
		}
	default:
		return reflect.Value{}, false
	}
	return rv.Convert(target), true
}

// convertList builds a slice of type T from a stored list. Missing elements become zero values.
func convertList[T any](reg *Registry, key string, list []any, def T) (T, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := any(list).(T); ok && rt.Kind() == reflect.Interface {
		return v, nil
	}
	if rt.Kind() != reflect.Slice {
		return def, fmt.Errorf("%w: '%s' holds a list, requested %s", ErrTypeMismatch, key, rt)
	}

	elemType := rt.Elem()
	out := reflect.MakeSlice(rt, len(list), len(list))
	for i, e := range list {
		if e == nil {
			continue
		}
		ev := reflect.ValueOf(e)
		switch {
		case ev.Type().AssignableTo(elemType):
			out.Index(i).Set(ev)
		case ev.Kind() == reflect.String && elemType.Kind() != reflect.String:
			parsed, err := reg.convert(elemType, ev.String())
			if err != nil {
				return def, fmt.Errorf("%w: element %d of '%s': %v", ErrTypeMismatch, i, key, err)
			}
			out.Index(i).Set(reflect.ValueOf(parsed))
		default:
			if cv, ok := convertNumber(ev, elemType); ok {
				out.Index(i).Set(cv)
				continue
			}
			if ev.Type().ConvertibleTo(elemType) && ev.Kind() == elemType.Kind() {
				out.Index(i).Set(ev.Convert(elemType))
				continue
			}
			return def, fmt.Errorf("%w: element %d of '%s' is %T, requested %s", ErrTypeMismatch, i, key, e, elemType)
		}
	}
	return out.Interface().(T), nil
}

// String returns the string at key, or def.
func (p *Properties) String(key, def string) (string, error) {
	return Get(p, key, def)
}

// Int returns the int at key, or def.
func (p *Properties) Int(key string, def int) (int, error) {
	return Get(p, key, def)
}

// Float returns the float64 at key, or def.
func (p *Properties) Float(key string, def float64) (float64, error) {
	return Get(p, key, def)
}

// Bool returns the bool at key, or def.
func (p *Properties) Bool(key string, def bool) (bool, error) {
	return Get(p, key, def)
}

// Path returns the file path at key, or def.
func (p *Properties) Path(key string, def FilePath) (FilePath, error) {
	return Get(p, key, def)
}

// URL returns the URL at key, or def.
func (p *Properties) URL(key string, def *url.URL) (*url.URL, error) {
	return Get(p, key, def)
}

// Duration returns the duration at key, or def.
func (p *Properties) Duration(key string, def time.Duration) (time.Duration, error) {
	return Get(p, key, def)
}

// Strings returns the list at key as strings, or def.
func (p *Properties) Strings(key string, def []string) ([]string, error) {
	return Get(p, key, def)
}
