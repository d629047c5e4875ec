// File: lixenwraith/properties/values.go
package properties

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
)

// typeOfValue returns the declared type implied by a stored value.
func typeOfValue(v any) reflect.Type {
	switch v.(type) {
	case nil:
		return nil
	case *Properties:
		return TableType
	case []any:
		return ListType
	default:
		return reflect.TypeOf(v)
	}
}

// normalizeValue maps caller values onto the stored representation: narrower numeric
// kinds become int or float64, slices become []any. Tables are returned as-is.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, int, float64, bool, FilePath, *url.URL, *Properties, []any:
		if l, ok := t.([]any); ok {
			return normalizeList(reflect.ValueOf(l))
		}
		return v, nil
	case float32:
		return float64(t), nil
	case int8:
		return int(t), nil
	case int16:
		return int(t), nil
	case int32:
		return int(t), nil
	case int64:
		if t > math.MaxInt || t < math.MinInt {
			return nil, fmt.Errorf("%w: %d overflows int", ErrTypeMismatch, t)
		}
		return int(t), nil
	case uint8:
		return int(t), nil
	case uint16:
		return int(t), nil
	case uint32:
		return int(t), nil
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		return normalizeList(rv)
	}
	return v, nil
}

func normalizeList(rv reflect.Value) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		e, err := normalizeValue(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("list element %d: %w", i, err)
		}
		if _, nested := e.([]any); nested {
			return nil, fmt.Errorf("%w: list element %d is itself a list", ErrTypeMismatch, i)
		}
		out[i] = e
	}
	return out, nil
}

// valuesEqual compares two stored values. Tables never compare equal.
func valuesEqual(a, b any) bool {
	switch at := a.(type) {
	case *Properties:
		return false
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !valuesEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	case *url.URL:
		bt, ok := b.(*url.URL)
		if !ok || at == nil || bt == nil {
			return at == nil && bt == nil && ok
		}
		return at.String() == bt.String()
	}
	if _, ok := b.(*Properties); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// copyValue returns a value safe to hand out without the tree lock. Lists are copied,
// tables are returned by reference.
func copyValue(v any) any {
	if l, ok := v.([]any); ok {
		out := make([]any, len(l))
		copy(out, l)
		return out
	}
	return v
}

// compatibleType reports whether a value of typ may be stored where expected is declared.
func compatibleType(expected, typ reflect.Type) bool {
	if expected == nil || typ == nil {
		return true
	}
	if expected == ListType || typ == ListType {
		return expected == typ
	}
	return typ.AssignableTo(expected)
}
