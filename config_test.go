// FILE: lixenwraith/strata/config_test.go
package strata

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accessorDefinitions() *Namespace {
	ns := NewNamespace("")
	ns.Add("name", "svc", "")
	ns.Add("port", 8080, "")
	ns.Add("ratio", 0.25, "")
	ns.Add("debug", false, "")
	ns.Add("timeout", 90*time.Second, "")
	ns.Add("started", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "")
	ns.Add("release", civil.Date{Year: 2024, Month: time.January, Day: 2}, "")
	ns.Add("tags", []string{"a", "b"}, "")
	ns.Add("match", regexp.MustCompile(`^x+$`), "")
	ns.Add("raw.count", "12", "")
	ns.Add("raw.flag", "yes", "")
	ns.Add("raw.wait", "0:0:45", "")
	ns.Add("raw.when", "2024-05-06", "")
	ns.Add("raw.list", "p, q", "")
	ns.Add("raw.pattern", "^y$", "")
	ns.Add("raw.nothing", nil, "")
	return ns
}

func TestConfigAccessors(t *testing.T) {
	cfg, err := NewBuilder().WithDefinitions(accessorDefinitions()).Build()
	require.NoError(t, err)

	t.Run("String", func(t *testing.T) {
		s, err := cfg.String("name")
		require.NoError(t, err)
		assert.Equal(t, "svc", s)

		s, err = cfg.String("timeout")
		require.NoError(t, err)
		assert.Equal(t, "00:01:30", s, "rendered by the converter")

		s, err = cfg.String("debug")
		require.NoError(t, err)
		assert.Equal(t, "False", s)

		s, err = cfg.String("raw.nothing")
		require.NoError(t, err)
		assert.Empty(t, s)

		_, err = cfg.String("absent")
		assert.Error(t, err)
	})

	t.Run("Numbers", func(t *testing.T) {
		port, err := cfg.Int("port")
		require.NoError(t, err)
		assert.Equal(t, 8080, port)

		count, err := cfg.Int64("raw.count")
		require.NoError(t, err)
		assert.Equal(t, int64(12), count)

		ratio, err := cfg.Float64("ratio")
		require.NoError(t, err)
		assert.Equal(t, 0.25, ratio)

		_, err = cfg.Int("name")
		assert.Error(t, err)
		_, err = cfg.Int("raw.nothing")
		assert.Error(t, err)
	})

	t.Run("Bool", func(t *testing.T) {
		debug, err := cfg.Bool("debug")
		require.NoError(t, err)
		assert.False(t, debug)

		flag, err := cfg.Bool("raw.flag")
		require.NoError(t, err)
		assert.True(t, flag)
	})

	t.Run("Duration", func(t *testing.T) {
		d, err := cfg.Duration("timeout")
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, d)

		d, err = cfg.Duration("raw.wait")
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, d)

		_, err = cfg.Duration("name")
		assert.Error(t, err)
	})

	t.Run("TimeAndDate", func(t *testing.T) {
		ts, err := cfg.Time("started")
		require.NoError(t, err)
		assert.Equal(t, 2024, ts.Year())

		ts, err = cfg.Time("raw.when")
		require.NoError(t, err)
		assert.Equal(t, time.May, ts.Month())

		d, err := cfg.Date("release")
		require.NoError(t, err)
		assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 2}, d)

		d, err = cfg.Date("started")
		require.NoError(t, err)
		assert.Equal(t, 2, d.Day)

		d, err = cfg.Date("raw.when")
		require.NoError(t, err)
		assert.Equal(t, 6, d.Day)

		_, err = cfg.Date("port")
		assert.Error(t, err)
	})

	t.Run("StringSlice", func(t *testing.T) {
		tags, err := cfg.StringSlice("tags")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tags)

		list, err := cfg.StringSlice("raw.list")
		require.NoError(t, err)
		assert.Equal(t, []string{"p", "q"}, list)
	})

	t.Run("Pattern", func(t *testing.T) {
		re, err := cfg.Pattern("match")
		require.NoError(t, err)
		assert.True(t, re.MatchString("xxx"))

		re, err = cfg.Pattern("raw.pattern")
		require.NoError(t, err)
		assert.True(t, re.MatchString("y"))

		_, err = cfg.Pattern("port")
		assert.Error(t, err)
	})
}

func TestConfigView(t *testing.T) {
	cfg, err := NewBuilder().
		WithDefinitions(accessorDefinitions()).
		WithArgs([]string{"--port=9090", "extra"}).
		Build()
	require.NoError(t, err)

	t.Run("Paths", func(t *testing.T) {
		paths := cfg.Paths()
		assert.Contains(t, paths, "raw.count")
		assert.Contains(t, paths, "port")
		assert.NotContains(t, paths, "admin.strict")
		assert.IsIncreasing(t, paths)
	})

	t.Run("Contains", func(t *testing.T) {
		assert.True(t, cfg.Contains("raw"))
		assert.True(t, cfg.Contains("raw.count"))
		assert.True(t, cfg.Contains("admin.strict"))
		assert.False(t, cfg.Contains("raw.absent"))
	})

	t.Run("OriginAndIsSet", func(t *testing.T) {
		origin, ok := cfg.Origin("port")
		require.True(t, ok)
		assert.Equal(t, "args", origin)
		assert.True(t, cfg.IsSet("port"))

		origin, ok = cfg.Origin("name")
		require.True(t, ok)
		assert.Equal(t, "default", origin)
		assert.False(t, cfg.IsSet("name"))

		_, ok = cfg.Origin("absent")
		assert.False(t, ok)
		assert.False(t, cfg.IsSet("absent"))
	})

	t.Run("Positional", func(t *testing.T) {
		assert.Equal(t, []string{"extra"}, cfg.Positional())
		cfg.Positional()[0] = "changed"
		assert.Equal(t, []string{"extra"}, cfg.Positional())
	})

	t.Run("GetReturnsCopies", func(t *testing.T) {
		tags, _ := cfg.Get("tags")
		tags.([]string)[0] = "changed"
		again, _ := cfg.Get("tags")
		assert.Equal(t, []string{"a", "b"}, again)

		sub, ok := cfg.Get("raw")
		require.True(t, ok)
		sub.(*Values).Set("count", "99")
		count, _ := cfg.Get("raw.count")
		assert.Equal(t, "12", count)
	})

	t.Run("NamespaceIsACopy", func(t *testing.T) {
		ns := cfg.Namespace()
		assert.False(t, ns.Contains("admin"))
		opt, ok := ns.Option("port")
		require.True(t, ok)
		assert.Equal(t, 9090, opt.Value())

		require.NoError(t, ns.SetValue("port", "1", true))
		port, _ := cfg.Get("port")
		assert.Equal(t, 9090, port)
	})

	t.Run("Strict", func(t *testing.T) {
		assert.False(t, cfg.Strict())
		strict, err := NewBuilder().WithDefinitions(accessorDefinitions()).WithStrict(true).Build()
		require.NoError(t, err)
		assert.True(t, strict.Strict())
	})
}

func TestConfigAggregationOrigin(t *testing.T) {
	ns := NewNamespace("")
	ns.Add("x", 1, "")
	require.NoError(t, ns.Set("y", NewAggregation(func(global, local *Values) (any, error) {
		return "computed", nil
	}, "")))

	cfg, err := Resolve([]any{ns})
	require.NoError(t, err)

	origin, ok := cfg.Origin("y")
	require.True(t, ok)
	assert.Equal(t, "aggregation", origin)
	y, _ := cfg.Get("y")
	assert.Equal(t, "computed", y)
}

func TestConfigHandleAdmin(t *testing.T) {
	ns := NewNamespace("")
	ns.Add("a", 1, "")

	cfg, err := NewBuilder().WithDefinitions(ns).WithArgs([]string{"--admin.print_conf=env"}).Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	exit, err := cfg.HandleAdmin(&buf)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Equal(t, "a='1'\n", buf.String())

	cfg, err = NewBuilder().WithDefinitions(ns).WithArgs([]string{"--admin.print_conf=xml"}).Build()
	require.NoError(t, err)
	_, err = cfg.HandleAdmin(&buf)
	assert.ErrorIs(t, err, ErrUnknownFileExtension)
}
