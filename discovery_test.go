// FILE: lixenwraith/properties/discovery_test.go
package properties

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverFile(t *testing.T) {
	isolated := func(t *testing.T) FileDiscoveryOptions {
		opts := DefaultDiscoveryOptions("myapp")
		opts.UseXDG = false
		opts.UseCurrentDir = false
		t.Setenv("MYAPP_PROPERTIES", "")
		return opts
	}

	t.Run("CLIFlag", func(t *testing.T) {
		opts := isolated(t)
		assert.Equal(t, "/etc/a.properties", DiscoverFile(opts, []string{"--properties", "/etc/a.properties"}))
		assert.Equal(t, "/etc/b.properties", DiscoverFile(opts, []string{"-v", "--properties=/etc/b.properties"}))
	})

	t.Run("EnvVar", func(t *testing.T) {
		opts := isolated(t)
		t.Setenv("MYAPP_PROPERTIES", "/env/app.properties")
		assert.Equal(t, "/env/app.properties", DiscoverFile(opts, nil))

		// The CLI flag wins over the environment
		assert.Equal(t, "/cli.properties", DiscoverFile(opts, []string{"--properties", "/cli.properties"}))
	})

	t.Run("SearchPaths", func(t *testing.T) {
		opts := isolated(t)
		first := t.TempDir()
		second := t.TempDir()
		opts.Paths = []string{first, second}

		assert.Empty(t, DiscoverFile(opts, nil))

		want := filepath.Join(second, "myapp.props")
		require.NoError(t, os.WriteFile(want, nil, 0644))
		assert.Equal(t, want, DiscoverFile(opts, nil))

		// Earlier paths and extensions take precedence
		preferred := filepath.Join(first, "myapp.properties")
		require.NoError(t, os.WriteFile(preferred, nil, 0644))
		assert.Equal(t, preferred, DiscoverFile(opts, nil))
	})

	t.Run("XDGConfigHome", func(t *testing.T) {
		opts := isolated(t)
		opts.UseXDG = true
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", home)
		t.Setenv("XDG_CONFIG_DIRS", filepath.Join(home, "none"))

		dir := filepath.Join(home, "myapp")
		require.NoError(t, os.MkdirAll(dir, 0755))
		want := filepath.Join(dir, "myapp.properties")
		require.NoError(t, os.WriteFile(want, nil, 0644))

		assert.Equal(t, want, DiscoverFile(opts, nil))
	})

	t.Run("BuilderKeepsFallback", func(t *testing.T) {
		opts := isolated(t)
		b := NewBuilder().
			WithFile("fallback.properties").
			WithArgs(nil).
			WithFileDiscovery(opts)
		assert.Equal(t, "fallback.properties", b.file)

		b = NewBuilder().
			WithFile("fallback.properties").
			WithArgs([]string{"--properties", "found.properties"}).
			WithFileDiscovery(opts)
		assert.Equal(t, "found.properties", b.file)
	})
}
