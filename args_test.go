// FILE: lixenwraith/strata/args_test.go
package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func argsDefinitions() *Namespace {
	ns := NewNamespace("")
	ns.Add("server.port", 8080, "listen port").Short = "p"
	ns.Add("server.host", "localhost", "listen address")
	ns.Add("debug", false, "verbose output").Short = "d"
	ns.Add("offset", 0, "")
	return ns
}

func TestArgsSource(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		ignore     bool
		expected   map[string]any
		positional []string
	}{
		{
			name:     "SeparateValue",
			args:     []string{"--server.port", "9090"},
			expected: map[string]any{"server": map[string]any{"port": "9090"}},
		},
		{
			name:     "InlineValue",
			args:     []string{"--server.host=0.0.0.0"},
			expected: map[string]any{"server": map[string]any{"host": "0.0.0.0"}},
		},
		{
			name:     "BoolPresence",
			args:     []string{"--debug", "--server.port=1"},
			expected: map[string]any{"debug": "true", "server": map[string]any{"port": "1"}},
		},
		{
			name:     "BoolExplicit",
			args:     []string{"--debug=false"},
			expected: map[string]any{"debug": "false"},
		},
		{
			name:     "ShortForms",
			args:     []string{"-p", "7070", "-d"},
			expected: map[string]any{"debug": "true", "server": map[string]any{"port": "7070"}},
		},
		{
			name:     "ShortInline",
			args:     []string{"-p=6060"},
			expected: map[string]any{"server": map[string]any{"port": "6060"}},
		},
		{
			name:     "NegativeNumberValue",
			args:     []string{"--offset", "-5"},
			expected: map[string]any{"offset": "-5"},
		},
		{
			name:       "Positional",
			args:       []string{"input.txt", "--debug", "output.txt", "--", "--server.port=1"},
			expected:   map[string]any{"debug": "true"},
			positional: []string{"input.txt", "output.txt", "--server.port=1"},
		},
		{
			name:     "UnknownKeptWhenStrict",
			args:     []string{"--missing", "x", "-z"},
			expected: map[string]any{"missing": "x", "-z": "true"},
		},
		{
			name:     "UnknownDroppedWhenIgnoring",
			args:     []string{"--missing", "x", "-z", "--debug"},
			ignore:   true,
			expected: map[string]any{"debug": "true"},
		},
		{
			name:     "EmptyKeySkipped",
			args:     []string{"--=value"},
			expected: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewArgsSource(tt.args)
			values, err := src.Values(argsDefinitions(), tt.ignore)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, values.Map())
			if tt.positional != nil {
				assert.Equal(t, tt.positional, src.Positional())
			}
		})
	}
}

func TestArgsSourceInvalidKey(t *testing.T) {
	src := NewArgsSource([]string{"--bad key=1"})

	_, err := src.Values(argsDefinitions(), false)
	assert.ErrorIs(t, err, ErrNotAnOption)

	values, err := src.Values(argsDefinitions(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, values.Len())
}

func TestArgsResolution(t *testing.T) {
	t.Run("ConvertedThroughOptions", func(t *testing.T) {
		cfg, err := NewBuilder().
			WithDefinitions(argsDefinitions()).
			WithArgs([]string{"-p", "9090", "--debug", "run"}).
			Build()
		require.NoError(t, err)

		port, _ := cfg.Get("server.port")
		debug, _ := cfg.Get("debug")
		assert.Equal(t, 9090, port)
		assert.Equal(t, true, debug)
		assert.Equal(t, []string{"run"}, cfg.Positional())
	})

	t.Run("UnknownShortStrict", func(t *testing.T) {
		_, err := NewBuilder().
			WithDefinitions(argsDefinitions()).
			WithArgs([]string{"-z"}).
			WithStrict(true).
			Build()
		require.Error(t, err)

		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, "-z", e.Path)
	})
}
