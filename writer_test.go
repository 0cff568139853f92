// FILE: lixenwraith/strata/writer_test.go
package strata

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// typedDefinitions covers every built-in kind across nested namespaces.
func typedDefinitions() *Namespace {
	ns := NewNamespace("service settings")
	ns.Add("name", "svc", "service name")
	ns.Add("enabled", true, "")
	ns.Add("ratio", 0.25, "sampling ratio")
	ns.Add("codec", KindString, "value codec")
	server := ns.Namespace("server")
	server.Doc = "listener"
	server.Add("port", 8080, "listen port")
	server.Add("timeout", 90*time.Second, "read timeout")
	server.Add("tls.enabled", false, "serve TLS")
	server.Add("tls.min_version", "1.2", "")
	ns.Add("schedule.start", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), "first run")
	ns.Add("schedule.day", civil.Date{Year: 2024, Month: time.March, Day: 1}, "")
	ns.Add("filter.match", regexp.MustCompile(`^v\d+$`), "accepted versions")
	ns.Add("filter.tags", []string{"a", "b"}, "")
	return ns
}

var typedArgs = []string{
	"--name=api gateway",
	"--enabled=false",
	"--ratio=0.5",
	"--codec=int",
	"--server.port=9090",
	"--server.timeout=1:02:03",
	"--server.tls.enabled=true",
	"--schedule.start=2025-01-02T03:04:05",
	"--schedule.day=2025-01-02",
	"--filter.match=^release-[0-9]+$",
	"--filter.tags=x, y, z",
}

func TestWriteRoundTrip(t *testing.T) {
	cfg, err := NewBuilder().WithDefinitions(typedDefinitions()).WithArgs(typedArgs).Build()
	require.NoError(t, err)

	codec, _ := cfg.Get("codec")
	assert.Equal(t, KindInt, codec)
	timeout, _ := cfg.Get("server.timeout")
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second, timeout)

	for _, format := range []Format{FormatConf, FormatINI, FormatJSON, FormatYAML, FormatTOML, FormatModule, FormatEnv} {
		t.Run(string(format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out."+string(format))
			require.NoError(t, cfg.Save(path))

			reread, err := NewBuilder().
				WithDefinitions(typedDefinitions()).
				WithFile(path).
				WithStrict(true).
				Build()
			require.NoError(t, err)

			for _, leaf := range cfg.Values().Leaves() {
				got, ok := reread.Get(leaf.Path)
				require.True(t, ok, leaf.Path)
				assert.True(t, valuesEqual(leaf.Value, got), "%s: want %v, got %v", leaf.Path, leaf.Value, got)
			}
			assert.True(t, cfg.Values().Equal(reread.Values()))
		})
	}
}

func TestWriteRoundTripText(t *testing.T) {
	block := "a\n\nb\n  c"

	t.Run("MultiLine", func(t *testing.T) {
		for _, format := range []Format{FormatConf, FormatINI, FormatJSON, FormatYAML, FormatTOML, FormatModule, FormatEnv} {
			t.Run(string(format), func(t *testing.T) {
				ns := NewNamespace("")
				ns.Add("block", "", "")

				cfg, err := NewBuilder().
					WithDefinitions(ns).
					WithSources(map[string]any{"block": block}).
					Build()
				require.NoError(t, err)

				path := filepath.Join(t.TempDir(), "out."+string(format))
				require.NoError(t, cfg.Save(path))

				reread, err := NewBuilder().WithDefinitions(ns).WithFile(path).WithStrict(true).Build()
				require.NoError(t, err)
				got, _ := reread.Get("block")
				assert.Equal(t, block, got)
			})
		}
	})

	t.Run("Quotes", func(t *testing.T) {
		definitions := func() *Namespace {
			ns := NewNamespace("")
			ns.Add("text.trailing", "", "")
			ns.Add("text.triple", "", "")
			ns.Add("text.opening", "", "")
			ns.Add("text.block", "", "")
			ns.Add("match.trailing", regexp.MustCompile("x"), "")
			ns.Add("match.triple", regexp.MustCompile("x"), "")
			ns.Add("match.both", regexp.MustCompile("x"), "")
			ns.Add("match.lines", regexp.MustCompile("x"), "")
			return ns
		}
		values := map[string]any{
			"text": map[string]any{
				"trailing": "end'",
				"triple":   `'''x"'`,
				"opening":  "'''open",
				"block":    block + "\n\td",
			},
			"match": map[string]any{
				"trailing": `end'`,
				"triple":   `'''x"'`,
				"both":     `'''a"""`,
				"lines":    "(?m)^a \n\tb$",
			},
		}

		for _, format := range []Format{FormatConf, FormatModule, FormatEnv} {
			t.Run(string(format), func(t *testing.T) {
				cfg, err := NewBuilder().WithDefinitions(definitions()).WithSources(values).Build()
				require.NoError(t, err)

				path := filepath.Join(t.TempDir(), "out."+string(format))
				require.NoError(t, cfg.Save(path))

				reread, err := NewBuilder().WithDefinitions(definitions()).WithFile(path).WithStrict(true).Build()
				require.NoError(t, err)
				for _, p := range []string{"text.trailing", "text.triple", "text.opening", "text.block"} {
					got, _ := reread.String(p)
					want, _ := cfg.String(p)
					assert.Equal(t, want, got, p)
				}
				for _, p := range []string{"match.trailing", "match.triple", "match.both", "match.lines"} {
					got, err := reread.Pattern(p)
					require.NoError(t, err, p)
					want, _ := cfg.Pattern(p)
					assert.Equal(t, want.String(), got.String(), p)
				}
			})
		}
	})

	t.Run("EnvOneLinePerValue", func(t *testing.T) {
		ns := NewNamespace("")
		ns.Add("block", "a\nb", "")
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatEnv, ns, WriteOptions{}))
		assert.Equal(t, "block=$'a\\nb'\n", buf.String())
	})

	t.Run("ModuleQuoting", func(t *testing.T) {
		assert.Equal(t, `'''^v\d+$'''`, moduleString(`^v\d+$`, true))
		assert.Equal(t, `"""end'"""`, moduleString("end'", true))
		assert.Equal(t, `"'''a\"\"\""`, moduleString(`'''a"""`, true))
		assert.Equal(t, "", openTripleQuote(`x = "'''" # '''`))
		assert.Equal(t, `'''`, openTripleQuote(`x = "a" + '''b`))
	})
}

func TestWriteConf(t *testing.T) {
	ns := NewNamespace("top doc")
	ns.Add("plain", "value", "a doc\nspanning lines")
	ns.Add("padded", " spaced ", "")
	ns.Add("multi", "first\nsecond", "")
	ns.Add("pattern", regexp.MustCompile(`a'b`), "")
	ns.Add("unset", nil, "")
	ns.Namespace("group").Doc = "grouped options"
	ns.Add("group.member", 1, "")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatConf, ns, WriteOptions{}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# top doc\n\n"))
	assert.Contains(t, out, "# name: plain\n# doc: a doc\n# spanning lines\n# converter: string\nplain=value\n")
	assert.Contains(t, out, "padded=''' spaced '''\n")
	assert.Contains(t, out, "multi='''first\n    second'''\n")
	assert.Contains(t, out, "pattern='''a'b'''\n")
	assert.Contains(t, out, "#unset=\n")
	assert.Contains(t, out, "# group: grouped options\n")
	assert.Contains(t, out, "group.member=1\n")

	values, err := readConf(buf.Bytes(), "")
	require.NoError(t, err)
	for key, want := range map[string]string{
		"plain":        "value",
		"padded":       " spaced ",
		"multi":        "first\nsecond",
		"pattern":      "a'b",
		"group.member": "1",
	} {
		got, _ := values.lookup([]string{key})
		assert.Equal(t, want, got, key)
	}
	assert.False(t, values.Contains("unset"))
}

func TestWriteJSONRecords(t *testing.T) {
	ns := NewNamespace("root doc")
	ns.Add("port", 8080, "listen port").Short = "p"
	ns.Add("token", "abc", "").Secret = true
	ns.Add("alias", 1, "").ReferenceValueFrom = "port"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, ns, WriteOptions{}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "root doc", doc[docKey])
	assert.Equal(t, map[string]any{
		"name":                  "port",
		"doc":                   "listen port",
		"default":               "8080",
		"value":                 "8080",
		"from_string_converter": "int",
		"short_form":            "p",
	}, doc["port"])
	assert.Equal(t, map[string]any{
		"name":                  "token",
		"default":               secretMask,
		"value":                 secretMask,
		"from_string_converter": "string",
		"secret":                true,
	}, doc["token"])
	assert.Equal(t, "port", doc["alias"].(map[string]any)["reference_value_from"])

	// Key order follows definition order
	out := buf.String()
	assert.Less(t, strings.Index(out, `"port"`), strings.Index(out, `"token"`))
	assert.Less(t, strings.Index(out, `"token"`), strings.Index(out, `"alias"`))
}

func TestWriteJSONAsDefinitions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, typedDefinitions(), WriteOptions{}))

	root := NewNamespace("")
	require.NoError(t, LoadDefinitions(root, buf.String()))

	assert.Equal(t, "service settings", root.Doc)
	assert.Equal(t, "listener", root.Namespace("server").Doc)

	port, ok := root.Option("server.port")
	require.True(t, ok)
	assert.Equal(t, 8080, port.Default)
	assert.Equal(t, "listen port", port.Doc)

	timeout, _ := root.Option("server.timeout")
	assert.Equal(t, 90*time.Second, timeout.Default)

	tags, _ := root.Option("filter.tags")
	assert.Equal(t, []string{"a", "b"}, tags.Default)
}

func TestWriteYAMLComments(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, typedDefinitions(), WriteOptions{}))
	out := buf.String()

	assert.Contains(t, out, "# service settings")
	assert.Contains(t, out, "# listener")
	assert.Contains(t, out, "# listen port")
	assert.Contains(t, out, `port: "8080"`)
}

func TestWriteINISections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatINI, typedDefinitions(), WriteOptions{}))
	out := buf.String()

	assert.Contains(t, out, "[top_level]")
	assert.Contains(t, out, "[server]")
	assert.Contains(t, out, "[server.tls]")
	assert.Less(t, strings.Index(out, "[top_level]"), strings.Index(out, "[server]"))
	assert.Contains(t, out, "converter: int")
}

func TestWriteEnvAndModule(t *testing.T) {
	ns := NewNamespace("")
	ns.Add("db.host", "it's here", "")
	ns.Add("unset", nil, "")

	var env bytes.Buffer
	require.NoError(t, Write(&env, FormatEnv, ns, WriteOptions{}))
	assert.Equal(t, "db__host='it'\\''s here'\n", env.String())

	var module bytes.Buffer
	require.NoError(t, Write(&module, FormatModule, ns, WriteOptions{}))
	assert.Contains(t, module.String(), "unset = None\n")
	assert.Contains(t, module.String(), "class db:\n")
	assert.Contains(t, module.String(), "    host = \"it's here\"\n")
}

func TestWriteSecrets(t *testing.T) {
	ns := NewNamespace("")
	ns.Add("password", "hunter2", "").Secret = true

	for _, format := range Formats() {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, format, ns, WriteOptions{}), format)
		assert.NotContains(t, buf.String(), "hunter2", format)

		buf.Reset()
		require.NoError(t, Write(&buf, format, ns, WriteOptions{ExposeSecrets: true}), format)
		assert.Contains(t, buf.String(), "hunter2", format)
	}
}

func TestWriteAggregation(t *testing.T) {
	ns := NewNamespace("")
	ns.Add("x", 2, "")
	require.NoError(t, ns.Set("double", NewAggregation(func(global, local *Values) (any, error) {
		x, _ := local.Get("x")
		return x.(int) * 2, nil
	}, "twice x")))

	cfg, err := Resolve([]any{ns})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf, FormatConf))
	assert.Contains(t, buf.String(), "# converter: aggregation\ndouble=4\n")
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("xml"), NewNamespace(""), WriteOptions{})
	assert.ErrorIs(t, err, ErrUnknownFileExtension)

	err = WriteFile(filepath.Join(t.TempDir(), "out.xml"), "", NewNamespace(""), WriteOptions{})
	assert.ErrorIs(t, err, ErrUnknownFileExtension)
}

func TestRegisterWriter(t *testing.T) {
	format := Format("lines")
	RegisterWriter(format, writeEnv)
	assert.Contains(t, Formats(), format)

	var buf bytes.Buffer
	ns := NewNamespace("")
	ns.Add("a", 1, "")
	require.NoError(t, Write(&buf, format, ns, WriteOptions{}))
	assert.Equal(t, "a='1'\n", buf.String())
}
