// FILE: lixenwraith/properties/codec.go
package properties

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lixenwraith/properties/internal/kvfile"
)

// fileHeader is written as a comment at the top of every stored file.
const fileHeader = "typed properties"

// Encode flattens the local contents of p into persisted key/value pairs.
// Each value is written as `TypeName text`; nested tables extend the key with
// `{child}` and list elements with `[index]`. Values without a registered converter
// are logged and skipped.
func Encode(p *Properties, logger logrus.FieldLogger) map[string]string {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	out := make(map[string]string)

	p.state.mu.RLock()
	defer p.state.mu.RUnlock()
	encodeTable(p, "", out, logger)
	return out
}

func encodeTable(t *Properties, prefix string, out map[string]string, logger logrus.FieldLogger) {
	for _, k := range t.keysLocked() {
		path := tableKey(prefix, k)
		switch v := t.entries[k].(type) {
		case *Properties:
			encodeTable(v, path, out, logger)
		case []any:
			for i, e := range v {
				ep := elementKey(path, i)
				switch ev := e.(type) {
				case nil:
				case *Properties:
					encodeTable(ev, ep, out, logger)
				default:
					encodeScalar(t.registry, ep, typeOfValue(ev), ev, out, logger)
				}
			}
		default:
			encodeScalar(t.registry, path, t.types[k], v, out, logger)
		}
	}
}

func encodeScalar(reg *Registry, key string, typ reflect.Type, v any, out map[string]string, logger logrus.FieldLogger) {
	conv, ok := reg.Lookup(typ)
	name, _ := reg.TypeName(typ)
	if !ok {
		logger.WithFields(logrus.Fields{"key": key, "type": typ}).
			Warn(fmt.Errorf("%w for %s, entry not stored", ErrConverterMissing, typ))
		return
	}
	text, err := conv.Format(v)
	if err != nil {
		logger.WithFields(logrus.Fields{"key": key, "type": name}).
			Warnf("failed to format value, entry not stored: %v", err)
		return
	}
	if text == "" {
		out[key] = name
		return
	}
	out[key] = name + " " + text
}

// Decode merges persisted key/value pairs into p and notifies listeners once.
// Entries that cannot be parsed are logged and skipped.
func Decode(p *Properties, pairs map[string]string, logger logrus.FieldLogger) error {
	if p.readOnly.Load() {
		return fmt.Errorf("failed to decode into table: %w", ErrReadOnly)
	}
	if decodeInto(p, pairs, logger) {
		return notifyChange(p)
	}
	return nil
}

// decodeInto stores every decodable pair into t without checking read-only and
// without notification. It reports whether anything changed.
func decodeInto(t *Properties, pairs map[string]string, logger logrus.FieldLogger) bool {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t.state.mu.Lock()
	defer t.state.mu.Unlock()

	changed := false
	for _, key := range keys {
		typ, value, err := decodeValue(t.registry, key, pairs[key], logger)
		if err != nil {
			logger.WithField("key", key).Warn(err)
			continue
		}
		node, err := t.putLocked(key, typ, value)
		if err != nil {
			logger.WithField("key", key).Warnf("entry skipped: %v", err)
			continue
		}
		changed = changed || node != nil
	}
	return changed
}

// decodeValue parses one persisted `TypeName text` value. Text without a type
// prefix is typed by trying int, float and bool in turn before falling back to string.
// A bare type name whose converter accepts empty text is that type's empty value, so an
// untyped entry spelled exactly like a type name (e.g. `mode=string`) does not survive.
func decodeValue(reg *Registry, key, raw string, logger logrus.FieldLogger) (reflect.Type, any, error) {
	typeName, text, typed := strings.Cut(raw, " ")
	if !typed {
		// An empty value is written as its bare type name
		if typ, conv, ok := reg.LookupName(raw); ok {
			if v, err := conv.Parse(""); err == nil {
				return typ, v, nil
			}
		}
		typ, v := guessValue(raw)
		return typ, v, nil
	}

	typ, conv, ok := reg.LookupName(typeName)
	if !ok {
		logger.WithFields(logrus.Fields{"key": key, "type": typeName}).
			Debug("unknown type name, value kept as string")
		return stringType, raw, nil
	}
	v, err := conv.Parse(text)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: '%s' as %s: %v", ErrMalformedEntry, key, typeName, err)
	}
	return typ, v, nil
}

func guessValue(raw string) (reflect.Type, any) {
	if i, err := strconv.Atoi(raw); err == nil {
		return reflect.TypeOf(i), i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return reflect.TypeOf(f), f
	}
	if strings.EqualFold(raw, "true") || strings.EqualFold(raw, "false") {
		return reflect.TypeOf(true), strings.EqualFold(raw, "true")
	}
	return stringType, raw
}

// Marshal renders the local contents of p in the persisted text format.
func Marshal(p *Properties) ([]byte, error) {
	var buf bytes.Buffer
	if err := kvfile.Write(&buf, Encode(p, nil), fileHeader); err != nil {
		return nil, fmt.Errorf("failed to marshal properties: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses data in the persisted text format and merges it into p.
func Unmarshal(p *Properties, data []byte) error {
	pairs, err := kvfile.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	return Decode(p, pairs, nil)
}
