// FILE: lixenwraith/properties/export.go
package properties

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/properties/internal/kvfile"
)

// Exchange formats for Export and Import.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatFlat = "flat"
)

// FormatFromPath guesses the exchange format from a file extension, defaulting to flat.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatFlat
	}
}

// Snapshot returns the effective contents of p as nested maps, with the defaults
// chain merged in. Sub-tables become map[string]any and lists []any.
func (p *Properties) Snapshot() map[string]any {
	out := make(map[string]any)
	if d := p.parallelDefault(); d != nil {
		out = d.Snapshot()
	}

	p.state.mu.RLock()
	local := make(map[string]any, len(p.entries))
	for k, v := range p.entries {
		local[k] = copyValue(v)
	}
	p.state.mu.RUnlock()

	// Tables are expanded after the lock is released
	for k, v := range local {
		switch t := v.(type) {
		case *Properties:
			out[k] = t.Snapshot()
		case []any:
			for i, e := range t {
				if et, ok := e.(*Properties); ok {
					t[i] = et.Snapshot()
				}
			}
			out[k] = t
		default:
			out[k] = v
		}
	}
	return out
}

// exportMap converts snapshot values into plain strings, numbers and bools.
// forTOML replaces nil list placeholders, which TOML cannot represent.
func exportMap(m map[string]any, forTOML bool) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = exportValue(v, forTOML)
	}
	return out
}

func exportValue(v any, forTOML bool) any {
	switch t := v.(type) {
	case map[string]any:
		return exportMap(t, forTOML)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			if e == nil && forTOML {
				out[i] = ""
				continue
			}
			out[i] = exportValue(e, forTOML)
		}
		return out
	case FilePath:
		return filepath.ToSlash(string(t))
	case *url.URL:
		return t.String()
	case time.Duration:
		return t.String()
	default:
		return v
	}
}

// Export writes the effective contents of p in format. The flat format writes only
// the local entries, exactly as they are persisted.
func (p *Properties) Export(w io.Writer, format string) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(exportMap(p.Snapshot(), true))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(exportMap(p.Snapshot(), false)); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(exportMap(p.Snapshot(), false))
	case FormatFlat:
		return kvfile.Write(w, Encode(p, nil), fileHeader)
	default:
		return fmt.Errorf("unsupported export format: %q", format)
	}
}

// Import reads nested data in format and sets every value it contains, as one batch.
// Strings are converted to the declared type of their key when one exists.
func (p *Properties) Import(r io.Reader, format string) error {
	if p.readOnly.Load() {
		return fmt.Errorf("failed to import: %w", ErrReadOnly)
	}

	data := make(map[string]any)
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&data); err != nil {
			return fmt.Errorf("failed to parse toml: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return fmt.Errorf("failed to parse json: %w", err)
		}
	case FormatFlat:
		raw, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("failed to read flat properties: %w", err)
		}
		return Unmarshal(p, raw)
	default:
		return fmt.Errorf("unsupported import format: %q", format)
	}

	return p.Batch(func() error {
		return p.importMap("", data)
	})
}

func (p *Properties) importMap(prefix string, data map[string]any) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if err := p.importValue(tableKey(prefix, k), data[k]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Properties) importValue(key string, v any) error {
	switch t := v.(type) {
	case map[string]any:
		return p.importMap(key, t)
	case []map[string]any:
		list := make([]any, len(t))
		for i, m := range t {
			list[i] = m
		}
		return p.importValue(key, list)
	case []any:
		hasTables := false
		for _, e := range t {
			if _, ok := e.(map[string]any); ok {
				hasTables = true
				break
			}
		}
		if !hasTables {
			list := make([]any, len(t))
			for i, e := range t {
				list[i] = importScalar(e)
			}
			return p.Set(key, list)
		}
		var errs []error
		for i, e := range t {
			ek := elementKey(key, i)
			if m, ok := e.(map[string]any); ok {
				errs = append(errs, p.importMap(ek, m))
			} else {
				errs = append(errs, p.Set(ek, importScalar(e)))
			}
		}
		return errors.Join(errs...)
	}

	value := importScalar(v)
	if typ, ok := p.Type(key); ok && typ != TableType && typ != ListType {
		switch s := value.(type) {
		case string:
			if typ != stringType {
				converted, err := p.registry.convert(typ, s)
				if err != nil {
					return fmt.Errorf("failed to import '%s': %w", key, err)
				}
				value = converted
			}
		case int:
			if typ == reflect.TypeOf(float64(0)) {
				value = float64(s)
			}
		}
	}
	return p.Set(key, value)
}

// importScalar maps decoder-specific scalars onto stored types.
func importScalar(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.Atoi(t.String()); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return v
}

// Clone returns a writable deep copy of p with the same defaults and no listeners.
// Cloning a sub-table yields a root whose defaults are the sub-table's parallel defaults.
func (p *Properties) Clone() *Properties {
	c := newRoot(p.parallelDefault(), p.registry)
	p.state.mu.RLock()
	defer p.state.mu.RUnlock()
	p.copyIntoLocked(c)
	return c
}

// Validate checks that every required key resolves to a value, locally or in defaults.
func (p *Properties) Validate(required ...string) error {
	var missing []string
	for _, key := range required {
		if _, ok := p.Value(key); !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required properties: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Debug returns a formatted listing of the local entries and of the effective view.
func (p *Properties) Debug() string {
	var b strings.Builder
	b.WriteString("Properties Debug Info:\n")
	if p.name != "" {
		b.WriteString(fmt.Sprintf("Table: %s\n", p.name))
	}
	b.WriteString(fmt.Sprintf("Read-only: %t\n", p.IsReadOnly()))

	depth := 0
	for d := p.Defaults(); d != nil; d = d.Defaults() {
		depth++
	}
	b.WriteString(fmt.Sprintf("Defaults chain: %d\n", depth))

	b.WriteString("Local values:\n")
	local := Encode(p, discardLogger())
	keys := make([]string, 0, len(local))
	for k := range local {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("  %s = %s\n", k, local[k]))
	}

	b.WriteString("Effective values:\n")
	var buf bytes.Buffer
	if err := p.Export(&buf, FormatYAML); err == nil {
		for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
