// FILE: lixenwraith/properties/convenience_test.go
package properties

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.properties")
	require.NoError(t, os.WriteFile(path, []byte("server{port}=int 9090\n"), 0644))

	pp, err := Quick(path, map[string]any{
		"server{host}": "localhost",
		"server{port}": 8080,
	})
	require.NoError(t, err)
	defer pp.Close()

	host, _ := pp.String("server{host}", "")
	port, _ := pp.Int("server{port}", 0)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 9090, port)

	// Without defaults the handle is still usable
	other, err := Quick(filepath.Join(t.TempDir(), "other.properties"), nil)
	require.NoError(t, err)
	defer other.Close()
	assert.Nil(t, other.Defaults())

	assert.Panics(t, func() { MustQuick("", nil) })
}

func TestSetText(t *testing.T) {
	t.Run("TypePrefix", func(t *testing.T) {
		p := New()
		require.NoError(t, p.SetText("n", "int 5"))
		require.NoError(t, p.SetText("d", "duration 2s"))

		n, _ := p.Int("n", 0)
		assert.Equal(t, 5, n)
		d, _ := p.Duration("d", 0)
		assert.Equal(t, 2*time.Second, d)
	})

	t.Run("DeclaredType", func(t *testing.T) {
		defaults := New()
		require.NoError(t, defaults.Set("port", 80))
		require.NoError(t, defaults.Set("home", FilePath("/srv")))

		p := NewWithDefaults(defaults, false)
		require.NoError(t, p.SetText("port", "81"))
		require.NoError(t, p.SetText("home", "/var/lib/app"))

		port, _ := p.Int("port", 0)
		assert.Equal(t, 81, port)
		typ, _ := p.Type("home")
		assert.Equal(t, reflect.TypeOf(FilePath("")), typ)

		assert.ErrorIs(t, p.SetText("port", "eighty-one"), ErrTypeMismatch)
	})

	t.Run("Heuristics", func(t *testing.T) {
		p := New()
		require.NoError(t, p.SetText("flag", "true"))
		require.NoError(t, p.SetText("ratio", "0.5"))
		require.NoError(t, p.SetText("greeting", "hello world"))

		flag, _ := p.Bool("flag", false)
		assert.True(t, flag)
		ratio, _ := p.Float("ratio", 0)
		assert.Equal(t, 0.5, ratio)
		greeting, _ := p.String("greeting", "")
		assert.Equal(t, "hello world", greeting)
	})

	t.Run("Malformed", func(t *testing.T) {
		assert.ErrorIs(t, New().SetText("n", "int five"), ErrMalformedEntry)
	})
}
