// FILE: lixenwraith/strata/toml.go
package strata

import (
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// readTOML decodes TOML keeping the key order reported by the decoder.
func readTOML(data []byte, _ string) (*Values, error) {
	var doc map[string]any
	md, err := toml.Decode(string(trimBOM(data)), &doc)
	if err != nil {
		return nil, err
	}

	out := NewValues()
	for _, key := range md.Keys() {
		value, ok := tomlLookup(doc, key)
		if !ok {
			continue
		}
		if _, isTable := value.(map[string]any); isTable {
			continue // Members follow as their own keys
		}
		out.Set(strings.Join(key, "."), value)
	}
	return out, nil
}

// tomlLookup walks the decoded document along key. Array tables stop the walk.
func tomlLookup(doc map[string]any, key toml.Key) (any, bool) {
	var current any = doc
	for _, segment := range key {
		table, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = table[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// writeTOML emits the tree as nested tables of string values.
func writeTOML(w io.Writer, ns *Namespace, opts WriteOptions) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	return enc.Encode(tomlTable(ns, opts))
}

func tomlTable(ns *Namespace, opts WriteOptions) map[string]any {
	table := make(map[string]any, len(ns.keys))
	for _, key := range ns.keys {
		switch e := ns.entries[key].(type) {
		case *Namespace:
			table[key] = tomlTable(e, opts)
		default:
			r := renderLeaf(e, opts)
			if !r.null {
				table[key] = r.text
			}
		}
	}
	return table
}
