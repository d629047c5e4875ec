// FILE: lixenwraith/properties/registry_test.go
package properties

import (
	"fmt"
	"net/url"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// point is a custom value type used to exercise converter registration
type point struct{ X, Y int }

type pointConverter struct{}

func (pointConverter) Format(v any) (string, error) {
	p, ok := v.(point)
	if !ok {
		return "", fmt.Errorf("%w: expected point, got %T", ErrTypeMismatch, v)
	}
	return fmt.Sprintf("%d,%d", p.X, p.Y), nil
}

func (pointConverter) Parse(s string) (any, error) {
	var p point
	if _, err := fmt.Sscanf(s, "%d,%d", &p.X, &p.Y); err != nil {
		return nil, err
	}
	return p, nil
}

func TestRegistry(t *testing.T) {
	t.Run("BuiltIns", func(t *testing.T) {
		r := NewRegistry()
		assert.Equal(t, []string{"bool", "duration", "file", "float", "int", "string", "url"}, r.Names())

		name, ok := r.TypeName(reflect.TypeOf(time.Duration(0)))
		assert.True(t, ok)
		assert.Equal(t, TypeNameDuration, name)

		typ, conv, ok := r.LookupName(TypeNameFile)
		require.True(t, ok)
		assert.Equal(t, reflect.TypeOf(FilePath("")), typ)
		assert.NotNil(t, conv)

		_, ok = r.Lookup(ListType)
		assert.False(t, ok)
	})

	t.Run("DefaultRegistryIsShared", func(t *testing.T) {
		assert.Same(t, DefaultRegistry(), DefaultRegistry())
		assert.Same(t, DefaultRegistry(), New().Registry())
	})

	t.Run("RegisterCustom", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("point", reflect.TypeOf(point{}), pointConverter{}))

		v, err := r.convert(reflect.TypeOf(point{}), "3,4")
		require.NoError(t, err)
		assert.Equal(t, point{3, 4}, v)

		// Trees created with the registry persist the custom type
		p := NewWithRegistry(nil, r)
		require.NoError(t, p.Set("origin", point{1, 2}))
		assert.Equal(t, map[string]string{"origin": "point 1,2"}, Encode(p, nil))

		q := NewWithRegistry(nil, r)
		require.NoError(t, Decode(q, map[string]string{"origin": "point 5,6"}, nil))
		got, err := Get(q, "origin", point{})
		require.NoError(t, err)
		assert.Equal(t, point{5, 6}, got)
	})

	t.Run("ReplaceRegistration", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register("pt", reflect.TypeOf(point{}), pointConverter{}))
		require.NoError(t, r.Register("point", reflect.TypeOf(point{}), pointConverter{}))

		_, _, ok := r.LookupName("pt")
		assert.False(t, ok)
		name, _ := r.TypeName(reflect.TypeOf(point{}))
		assert.Equal(t, "point", name)
	})

	t.Run("InvalidRegistration", func(t *testing.T) {
		r := NewRegistry()
		assert.Error(t, r.Register("", reflect.TypeOf(point{}), pointConverter{}))
		assert.Error(t, r.Register("point", nil, pointConverter{}))
		assert.Error(t, r.Register("point", reflect.TypeOf(point{}), nil))
		assert.Error(t, r.Register("list", ListType, pointConverter{}))
	})

	t.Run("MissingConverter", func(t *testing.T) {
		_, err := NewRegistry().convert(reflect.TypeOf(point{}), "1,2")
		assert.ErrorIs(t, err, ErrConverterMissing)
	})
}

func TestConverters(t *testing.T) {
	r := NewRegistry()
	parse := func(name, text string) (any, error) {
		_, conv, ok := r.LookupName(name)
		require.True(t, ok, name)
		return conv.Parse(text)
	}
	format := func(name string, v any) (string, error) {
		_, conv, ok := r.LookupName(name)
		require.True(t, ok, name)
		return conv.Format(v)
	}

	t.Run("Int", func(t *testing.T) {
		v, err := parse(TypeNameInt, " 42 ")
		require.NoError(t, err)
		assert.Equal(t, 42, v)

		_, err = parse(TypeNameInt, "4.2")
		assert.Error(t, err)

		_, err = format(TypeNameInt, "42")
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("Float", func(t *testing.T) {
		v, err := parse(TypeNameFloat, "0.3")
		require.NoError(t, err)
		assert.Equal(t, 0.3, v)

		s, err := format(TypeNameFloat, 42.7)
		require.NoError(t, err)
		assert.Equal(t, "42.7", s)
	})

	t.Run("Bool", func(t *testing.T) {
		for text, want := range map[string]bool{"true": true, "TRUE": true, "false": false, "yes": false} {
			v, err := parse(TypeNameBool, text)
			require.NoError(t, err)
			assert.Equal(t, want, v, text)
		}
	})

	t.Run("FilePath", func(t *testing.T) {
		v, err := parse(TypeNameFile, "var/data/app.db")
		require.NoError(t, err)
		assert.Equal(t, FilePath(filepath.FromSlash("var/data/app.db")), v)

		s, err := format(TypeNameFile, FilePath(filepath.Join("var", "data")))
		require.NoError(t, err)
		assert.Equal(t, "var/data", s)
	})

	t.Run("URL", func(t *testing.T) {
		v, err := parse(TypeNameURL, "https://example.com/a?b=c")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a?b=c", v.(*url.URL).String())

		_, err = parse(TypeNameURL, "relative/path")
		assert.Error(t, err)

		_, err = parse(TypeNameURL, "https://example.com/"+strings.Repeat("a", 2048))
		assert.Error(t, err)
	})

	t.Run("Duration", func(t *testing.T) {
		v, err := parse(TypeNameDuration, "1m30s")
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, v)

		s, err := format(TypeNameDuration, 1500*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "1.5s", s)

		_, err = parse(TypeNameDuration, "soon")
		assert.Error(t, err)
	})
}
