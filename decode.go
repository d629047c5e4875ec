// FILE: lixenwraith/properties/decode.go
package properties

import (
	"fmt"
	"net"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ScanTag is the struct tag read by Scan.
const ScanTag = "prop"

// Scan decodes the effective contents of the sub-table at key, defaults included, into
// target, which must be a non-nil pointer to a struct or map. An empty key scans p itself.
// Fields are matched by their `prop` tag, falling back to the field name.
//
// Text is converted into any field type the table's registry knows, so a FilePath or
// *url.URL field is filled the same way the file codec would parse it.
func (p *Properties) Scan(key string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("target of Scan must be a non-nil pointer, got %T", target)
	}

	table, err := p.scanSource(key)
	if err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          ScanTag,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			textToRegisteredHook(p.registry),
			textToIPHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
		ZeroFields: true,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(exportMap(table.Snapshot(), false)); err != nil {
		return fmt.Errorf("scan of %q failed: %w", key, err)
	}
	return nil
}

// scanSource resolves the table Scan reads; a missing table reads as empty
func (p *Properties) scanSource(key string) (*Properties, error) {
	if key == "" {
		return p, nil
	}
	v, ok := p.Value(key)
	if !ok {
		return EmptyProperties, nil
	}
	table, isTable := v.(*Properties)
	if !isTable {
		return nil, fmt.Errorf("%w: '%s' refers to non-table value (type %T)", ErrTypeMismatch, key, v)
	}
	return table, nil
}

// textToRegisteredHook parses text into named or pointer types that have a converter.
// Builtin kinds are left to mapstructure's weak typing.
func textToRegisteredHook(reg *Registry) mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || (to.PkgPath() == "" && to.Kind() != reflect.Ptr) {
			return data, nil
		}
		text := reflect.ValueOf(data).String()

		if c, ok := reg.Lookup(to); ok {
			return c.Parse(text)
		}
		// A value field whose pointer type is registered, e.g. url.URL
		if to.Kind() != reflect.Ptr {
			if c, ok := reg.Lookup(reflect.PointerTo(to)); ok {
				v, err := c.Parse(text)
				if err != nil {
					return nil, err
				}
				return reflect.ValueOf(v).Elem().Interface(), nil
			}
		}
		return data, nil
	}
}

// textToIPHook parses net.IP fields, which have no converter of their own
func textToIPHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(net.IP{}) {
		return data, nil
	}
	text := reflect.ValueOf(data).String()
	if len(text) > 45 { // longest IPv6 text form
		return nil, fmt.Errorf("invalid IP length: %d", len(text))
	}
	ip := net.ParseIP(text)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", text)
	}
	return ip, nil
}
