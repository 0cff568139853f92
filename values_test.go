// FILE: lixenwraith/strata/values_test.go
package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesPaths(t *testing.T) {
	t.Run("SetCreatesSubtrees", func(t *testing.T) {
		v := NewValues()
		v.Set("server.http.port", 8080)
		v.Set("server.host", "localhost")

		port, ok := v.Get("server.http.port")
		require.True(t, ok)
		assert.Equal(t, 8080, port)

		sub, ok := v.Get("server")
		require.True(t, ok)
		assert.Equal(t, []string{"http", "host"}, sub.(*Values).Keys())
	})

	t.Run("LeafReplacedBySubtree", func(t *testing.T) {
		v := NewValues()
		v.Set("a", 1)
		v.Set("a.b", 2)

		b, ok := v.Get("a.b")
		require.True(t, ok)
		assert.Equal(t, 2, b)
	})

	t.Run("MissingPath", func(t *testing.T) {
		v := NewValues()
		v.Set("a.b", 1)
		assert.False(t, v.Contains("a.c"))
		assert.False(t, v.Contains("a.b.c"))
	})

	t.Run("LeavesInInsertionOrder", func(t *testing.T) {
		v := NewValues()
		v.Set("z", 1)
		v.Set("a.y", 2)
		v.Set("a.b", 3)
		v.Set("m", 4)

		var paths []string
		for _, leaf := range v.Leaves() {
			paths = append(paths, leaf.Path)
		}
		assert.Equal(t, []string{"z", "a.y", "a.b", "m"}, paths)
	})

	t.Run("BreadthFirst", func(t *testing.T) {
		v := NewValues()
		v.Set("a.x", 1)
		v.Set("b", 2)
		v.Set("a.c.d", 3)

		var leaves []string
		for _, pv := range v.BreadthFirst(false) {
			leaves = append(leaves, pv.Path)
		}
		assert.Equal(t, []string{"b", "a.x", "a.c.d"}, leaves)

		var all []string
		for _, pv := range v.BreadthFirst(true) {
			all = append(all, pv.Path)
		}
		assert.Equal(t, []string{"b", "a", "a.x", "a.c", "a.c.d"}, all)
	})
}

func TestValuesAcquisition(t *testing.T) {
	v := NewValues()
	v.Set("timeout", 30)
	v.Set("db.host", "localhost")
	v.Set("db.replica.port", 5433)

	t.Run("DisabledByDefault", func(t *testing.T) {
		_, ok := v.Get("db.replica.host")
		assert.False(t, ok)
	})

	t.Run("FallsBackUpThePath", func(t *testing.T) {
		acq := v.Acquiring()

		host, ok := acq.Get("db.replica.host")
		require.True(t, ok)
		assert.Equal(t, "localhost", host)

		timeout, ok := acq.Get("db.replica.timeout")
		require.True(t, ok)
		assert.Equal(t, 30, timeout)

		port, ok := acq.Get("db.replica.port")
		require.True(t, ok)
		assert.Equal(t, 5433, port)

		_, ok = acq.Get("db.replica.user")
		assert.False(t, ok)
	})
}

func TestValuesEqualAndClone(t *testing.T) {
	a := NewValues()
	a.Set("x.y", []string{"one", "two"})
	a.Set("z", 1)

	b := a.Clone()
	assert.True(t, a.Equal(b))

	list, _ := b.Get("x.y")
	list.([]string)[0] = "changed"
	orig, _ := a.Get("x.y")
	assert.Equal(t, []string{"one", "two"}, orig)

	b.Set("z", 2)
	assert.False(t, a.Equal(b))

	assert.Equal(t, map[string]any{
		"x": map[string]any{"y": []string{"one", "two"}},
		"z": 1,
	}, a.Map())
}

func TestValuesNormalize(t *testing.T) {
	t.Run("FlatAndNestedAgree", func(t *testing.T) {
		flat := NewValues()
		flat.put("a.b", 1)

		nested := NewValues()
		nested.Set("a.b", 1)

		assert.True(t, flat.normalize().Equal(nested.normalize()))
	})

	t.Run("NestedWins", func(t *testing.T) {
		v := NewValues()
		sub := NewValues()
		sub.put("b", "nested")
		v.put("a", sub)
		v.put("a.b", "flat")

		got, ok := v.normalize().Get("a.b")
		require.True(t, ok)
		assert.Equal(t, "nested", got)
	})

	t.Run("FromMapNestedWins", func(t *testing.T) {
		v := valuesFromMap(map[string]any{
			"a.b": "flat",
			"a":   map[string]any{"b": "nested"},
		}, nil)

		got, ok := v.Get("a.b")
		require.True(t, ok)
		assert.Equal(t, "nested", got)
	})
}

func TestCollapseLiterals(t *testing.T) {
	record := NewValues()
	record.put("name", "port")
	record.put("default", "80")
	record.put("value", "8080")
	record.put("doc", "listen port")

	v := NewValues()
	v.put("__doc__", "root doc")
	v.put("port", record)
	v.put("ratio", 0.5)
	v.put("flag", true)
	v.put("none", nil)

	out := v.collapseLiterals()
	assert.Equal(t, []string{"port", "ratio", "flag", "none"}, out.Keys())

	port, _ := out.Get("port")
	assert.Equal(t, "8080", port)
	ratio, _ := out.Get("ratio")
	assert.Equal(t, "0.5", ratio)
	flag, _ := out.Get("flag")
	assert.Equal(t, "true", flag)
	none, ok := out.Get("none")
	assert.True(t, ok)
	assert.Nil(t, none)
}
