// FILE: lixenwraith/properties/builder_test.go
package properties

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quietBuilder returns a builder that does not watch and logs nowhere
func quietBuilder(path string) *Builder {
	logger, _ := logtest.NewNullLogger()
	return NewBuilder().
		WithFile(path).
		WithArgs(nil).
		WithLogger(logger).
		WithoutWatch()
}

// TestBuilder tests the builder pattern
func TestBuilder(t *testing.T) {
	t.Run("BasicBuilder", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.properties")

		pp, err := quietBuilder(path).
			WithDefaultValues(map[string]any{
				"server{host}": "localhost",
				"server{port}": 8080,
			}).
			Build()
		require.NoError(t, err)
		defer pp.Close()

		host, err := pp.String("server{host}", "")
		require.NoError(t, err)
		assert.Equal(t, "localhost", host)

		// Defaults table is read-only and separate from the file
		require.NotNil(t, pp.Defaults())
		assert.True(t, pp.Defaults().IsReadOnly())
		assert.Zero(t, pp.Len())
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := NewBuilder().WithArgs(nil).Build()
		assert.Error(t, err)
	})

	t.Run("PollIntervalBelowMinimum", func(t *testing.T) {
		_, err := quietBuilder(filepath.Join(t.TempDir(), "a.properties")).
			WithPollInterval(time.Millisecond).
			Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "below minimum")
	})

	t.Run("LayeredDefaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		defaultsFile := filepath.Join(tmpDir, "defaults.properties")
		require.NoError(t, os.WriteFile(defaultsFile, []byte("a=string file\nb=string file\n"), 0644))

		base := New()
		require.NoError(t, base.Set("a", "table"))
		require.NoError(t, base.Set("b", "table"))
		require.NoError(t, base.Set("c", "table"))

		pp, err := quietBuilder(filepath.Join(tmpDir, "app.properties")).
			WithDefaults(base).
			WithDefaultsFile(defaultsFile).
			WithDefaultValues(map[string]any{"a": "values"}).
			Build()
		require.NoError(t, err)
		defer pp.Close()

		a, _ := pp.String("a", "")
		b, _ := pp.String("b", "")
		c, _ := pp.String("c", "")
		assert.Equal(t, "values", a)
		assert.Equal(t, "file", b)
		assert.Equal(t, "table", c)
	})

	t.Run("MissingDefaultsFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		_, err := quietBuilder(filepath.Join(tmpDir, "app.properties")).
			WithDefaultsFile(filepath.Join(tmpDir, "nope.properties")).
			Build()
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Required", func(t *testing.T) {
		tmpDir := t.TempDir()
		path := filepath.Join(tmpDir, "app.properties")
		require.NoError(t, os.WriteFile(path, []byte("db{url}=url https://db.example.com\n"), 0644))

		pp, err := quietBuilder(path).WithRequired("db{url}").Build()
		require.NoError(t, err)
		pp.Close()

		_, err = quietBuilder(path).WithRequired("db{url}", "db{user}").Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db{user}")
	})

	t.Run("Validators", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.properties")
		var order []int
		invalid := errors.New("port out of range")

		_, err := quietBuilder(path).
			WithDefaultValues(map[string]any{"port": 80}).
			WithValidator(func(pp *Persistent) error {
				order = append(order, 1)
				return nil
			}).
			WithValidator(func(pp *Persistent) error {
				order = append(order, 2)
				if port, _ := pp.Int("port", 0); port < 1024 {
					return invalid
				}
				return nil
			}).
			WithValidator(nil).
			Build()
		assert.ErrorIs(t, err, invalid)
		assert.Equal(t, []int{1, 2}, order)
	})

	t.Run("MustBuildPanics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBuilder().WithArgs(nil).MustBuild()
		})
	})

	t.Run("BuildAndScan", func(t *testing.T) {
		type Server struct {
			Host    string        `prop:"host"`
			Port    int           `prop:"port"`
			Timeout time.Duration `prop:"timeout"`
		}

		path := filepath.Join(t.TempDir(), "app.properties")
		require.NoError(t, os.WriteFile(path, []byte("server{port}=int 9090\n"), 0644))

		var s Server
		pp, err := quietBuilder(path).
			WithDefaultValues(map[string]any{
				"server{host}":    "localhost",
				"server{port}":    8080,
				"server{timeout}": 5 * time.Second,
			}).
			BuildAndScan("server", &s)
		require.NoError(t, err)
		defer pp.Close()

		assert.Equal(t, Server{Host: "localhost", Port: 9090, Timeout: 5 * time.Second}, s)
	})

	t.Run("ReadOnlyAndRegistry", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.properties")
		r := NewRegistry()

		pp, err := quietBuilder(path).
			WithReadOnly(true).
			WithRegistry(r).
			WithLockTimeout(time.Second).
			Build()
		require.NoError(t, err)
		defer pp.Close()

		assert.Same(t, r, pp.Registry())
		assert.ErrorIs(t, pp.Set("a", 1), ErrReadOnly)
	})

	t.Run("WithMonitor", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.properties")
		m := NewMonitor(MonitorOptions{Interval: 20 * time.Millisecond})
		defer m.Stop()

		logger, _ := logtest.NewNullLogger()
		pp, err := NewBuilder().WithArgs(nil).WithFile(path).WithLogger(logger).WithMonitor(m).Build()
		require.NoError(t, err)
		defer pp.Close()

		assert.Equal(t, []string{pp.File()}, m.WatchedFiles())
	})
}
