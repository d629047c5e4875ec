// FILE: lixenwraith/properties/decode_test.go
package properties

import (
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	t.Run("Fixture", func(t *testing.T) {
		type Author struct {
			Name string `prop:"name"`
			Tel  int    `prop:"tel"`
		}
		type Table struct {
			Name  string  `prop:"name"`
			SeqNo int     `prop:"seqNo"`
			Valid float64 `prop:"valid"`
		}
		type Doc struct {
			Author      Author           `prop:"author"`
			Tables      map[string]Table `prop:"table"`
			StringList  []string
			IntegerList []int
			BooleanList []bool
		}

		p := loadFixture(t, "typed.properties")
		var doc Doc
		require.NoError(t, p.Scan("", &doc))

		assert.Equal(t, Author{Name: "Tony", Tel: 9624}, doc.Author)
		assert.Equal(t, Table{Name: "testtable2", SeqNo: 5, Valid: 0.3}, doc.Tables["2"])
		assert.Equal(t, []string{"One", "Two", "Three"}, doc.StringList)
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, doc.IntegerList)
		assert.Equal(t, []bool{true, false, true}, doc.BooleanList)
	})

	t.Run("NetworkTypesAndDefaults", func(t *testing.T) {
		type Endpoint struct {
			Bind     net.IP        `prop:"bind"`
			Upstream *url.URL      `prop:"upstream"`
			Timeout  time.Duration `prop:"timeout"`
			Started  time.Time     `prop:"started"`
			Tags     []string      `prop:"tags"`
			Root     string        `prop:"root"`
			Home     FilePath      `prop:"home"`
			Mirror   url.URL       `prop:"mirror"`
		}

		defaults := New()
		require.NoError(t, defaults.Set("ep{bind}", "127.0.0.1"))
		require.NoError(t, defaults.Set("ep{timeout}", 2*time.Second))
		require.NoError(t, defaults.Set("ep{tags}", "a,b"))

		p := NewWithDefaults(defaults, false)
		u, _ := url.Parse("https://upstream.example.com:8443/api")
		require.NoError(t, p.Set("ep{upstream}", u))
		require.NoError(t, p.Set("ep{started}", "2024-03-01T10:00:00Z"))
		require.NoError(t, p.Set("ep{root}", FilePath("/srv/data")))
		require.NoError(t, p.Set("ep{home}", "/opt/app"))
		require.NoError(t, p.Set("ep{mirror}", "https://mirror.example.com/pub"))

		var ep Endpoint
		require.NoError(t, p.Scan("ep", &ep))

		assert.Equal(t, "127.0.0.1", ep.Bind.String())
		require.NotNil(t, ep.Upstream)
		assert.Equal(t, "upstream.example.com:8443", ep.Upstream.Host)
		assert.Equal(t, 2*time.Second, ep.Timeout)
		assert.Equal(t, 2024, ep.Started.Year())
		assert.Equal(t, []string{"a", "b"}, ep.Tags)
		assert.Equal(t, "/srv/data", ep.Root)
		assert.Equal(t, FilePath("/opt/app"), ep.Home)
		assert.Equal(t, "mirror.example.com", ep.Mirror.Host)
	})

	t.Run("IntoMap", func(t *testing.T) {
		p := New()
		require.NoError(t, p.Set("limits{cpu}", 2))
		require.NoError(t, p.Set("limits{memory}", 512))

		var limits map[string]int
		require.NoError(t, p.Scan("limits", &limits))
		assert.Equal(t, map[string]int{"cpu": 2, "memory": 512}, limits)
	})

	t.Run("MissingTableKeepsTarget", func(t *testing.T) {
		type S struct {
			A int `prop:"a"`
		}
		s := S{A: 5}
		require.NoError(t, New().Scan("missing", &s))
		assert.Equal(t, 5, s.A)
	})

	t.Run("Errors", func(t *testing.T) {
		p := New()
		require.NoError(t, p.Set("scalar", 1))

		var s struct{}
		assert.Error(t, p.Scan("", s))
		assert.ErrorIs(t, p.Scan("scalar", &s), ErrTypeMismatch)

		require.NoError(t, p.Set("net{bind}", "not-an-ip"))
		var n struct {
			Bind net.IP `prop:"bind"`
		}
		assert.Error(t, p.Scan("net", &n))
	})
}
