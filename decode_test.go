// FILE: lixenwraith/strata/decode_test.go
package strata

import (
	"net"
	"net/url"
	"regexp"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDefinitions() *Namespace {
	ns := NewNamespace("")
	ns.Add("name", "svc", "")
	ns.Add("server.host", "127.0.0.1", "")
	ns.Add("server.port", 8080, "")
	ns.Add("server.timeout", "1:30", "").Kind = KindDuration
	ns.Add("server.endpoint", "https://example.com/api", "")
	ns.Add("server.network", "10.0.0.0/8", "")
	ns.Add("server.match", regexp.MustCompile(`^/v\d+/`), "")
	ns.Add("server.tags", []string{"a", "b"}, "")
	ns.Add("server.release", civil.Date{Year: 2024, Month: time.June, Day: 1}, "")
	ns.Add("server.started", "2024-06-01T10:00:00Z", "")
	return ns
}

type decodedServer struct {
	Host     net.IP         `strata:"host"`
	Port     int            `strata:"port"`
	Timeout  time.Duration  `strata:"timeout"`
	Endpoint *url.URL       `strata:"endpoint"`
	Network  net.IPNet      `strata:"network"`
	Match    *regexp.Regexp `strata:"match"`
	Tags     []string       `strata:"tags"`
	Release  civil.Date     `strata:"release"`
	Started  time.Time      `strata:"started"`
}

// TestScanWithComplexTypes tests scanning with complex types
func TestScanWithComplexTypes(t *testing.T) {
	cfg, err := NewBuilder().WithDefinitions(decodeDefinitions()).Build()
	require.NoError(t, err)

	var server decodedServer
	require.NoError(t, cfg.Scan("server", &server))

	assert.Equal(t, "127.0.0.1", server.Host.String())
	assert.Equal(t, 8080, server.Port)
	assert.Equal(t, 90*time.Second, server.Timeout)
	require.NotNil(t, server.Endpoint)
	assert.Equal(t, "example.com", server.Endpoint.Host)
	assert.Equal(t, "10.0.0.0/8", server.Network.String())
	require.NotNil(t, server.Match)
	assert.True(t, server.Match.MatchString("/v2/users"))
	assert.Equal(t, []string{"a", "b"}, server.Tags)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.June, Day: 1}, server.Release)
	assert.True(t, server.Started.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)))
}

// TestScanFromSources checks that converted source values decode
func TestScanFromSources(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefinitions(decodeDefinitions()).
		WithArgs([]string{
			"--server.timeout=0:2:00",
			"--server.tags=x, y",
			"--server.release=2025-02-03",
			"--server.match=^/api/",
		}).
		Build()
	require.NoError(t, err)

	var server decodedServer
	require.NoError(t, cfg.Scan("server", &server))
	assert.Equal(t, 2*time.Minute, server.Timeout)
	assert.Equal(t, []string{"x", "y"}, server.Tags)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.February, Day: 3}, server.Release)
	assert.True(t, server.Match.MatchString("/api/users"))
}

// TestScanWithBasePath tests scanning nested and whole trees
func TestScanWithBasePath(t *testing.T) {
	cfg, err := NewBuilder().WithDefinitions(decodeDefinitions()).Build()
	require.NoError(t, err)

	t.Run("WholeTree", func(t *testing.T) {
		var whole struct {
			Name   string `strata:"name"`
			Server struct {
				Port int `strata:"port"`
			} `strata:"server"`
		}
		require.NoError(t, cfg.Scan("", &whole))
		assert.Equal(t, "svc", whole.Name)
		assert.Equal(t, 8080, whole.Server.Port)
	})

	t.Run("AdminExcluded", func(t *testing.T) {
		var tree map[string]any
		require.NoError(t, cfg.Scan("", &tree))
		assert.Contains(t, tree, "server")
		assert.NotContains(t, tree, "admin")
	})

	t.Run("MissingSectionIsEmpty", func(t *testing.T) {
		var target struct {
			Value string `strata:"value"`
		}
		require.NoError(t, cfg.Scan("nonexistent", &target))
		assert.Empty(t, target.Value)
	})

	t.Run("LeafIsNotASection", func(t *testing.T) {
		var target struct{}
		err := cfg.Scan("server.port", &target)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-map value")
	})
}

// TestInvalidScanTargets tests error handling for invalid targets
func TestInvalidScanTargets(t *testing.T) {
	cfg, err := NewBuilder().WithDefinitions(decodeDefinitions()).Build()
	require.NoError(t, err)

	var server decodedServer
	assert.Error(t, cfg.Scan("server", server), "non-pointer target")
	assert.Error(t, cfg.Scan("server", (*decodedServer)(nil)), "nil pointer target")
}

// TestZeroFields checks that scanning replaces previous content of the target
func TestZeroFields(t *testing.T) {
	cfg, err := NewBuilder().WithDefinitions(decodeDefinitions()).Build()
	require.NoError(t, err)

	target := map[string]any{"stale": true}
	require.NoError(t, cfg.Scan("server", &target))
	assert.NotContains(t, target, "stale")
	assert.Contains(t, target, "port")
}

// TestWeaklyTypedInput tests weak type conversions
func TestWeaklyTypedInput(t *testing.T) {
	ns := NewNamespace("")
	ns.Add("count", "42", "")
	ns.Add("enabled", 1, "")
	ns.Add("ratio", "0.5", "")

	cfg, err := NewBuilder().WithDefinitions(ns).Build()
	require.NoError(t, err)

	var target struct {
		Count   int     `strata:"count"`
		Enabled bool    `strata:"enabled"`
		Ratio   float64 `strata:"ratio"`
	}
	require.NoError(t, cfg.Scan("", &target))
	assert.Equal(t, 42, target.Count)
	assert.True(t, target.Enabled)
	assert.Equal(t, 0.5, target.Ratio)
}

func TestScanValid(t *testing.T) {
	type limits struct {
		Port    int    `strata:"port" validate:"min=1024"`
		Host    string `strata:"host" validate:"required,ip"`
		Missing string `strata:"missing"`
	}

	t.Run("Valid", func(t *testing.T) {
		cfg, err := NewBuilder().WithDefinitions(decodeDefinitions()).Build()
		require.NoError(t, err)

		var target limits
		require.NoError(t, cfg.ScanValid("server", &target))
		assert.Equal(t, 8080, target.Port)
	})

	t.Run("Invalid", func(t *testing.T) {
		cfg, err := NewBuilder().
			WithDefinitions(decodeDefinitions()).
			WithArgs([]string{"--server.port=80"}).
			Build()
		require.NoError(t, err)

		var target limits
		err = cfg.ScanValid("server", &target)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `validation failed for path "server"`)
		assert.Contains(t, err.Error(), "Port")
	})
}
