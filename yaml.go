// FILE: lixenwraith/strata/yaml.go
package strata

import (
	"fmt"
	"io"

	goyaml "github.com/goccy/go-yaml"
	"gopkg.in/yaml.v3"
)

// readYAML decodes a YAML mapping keeping key order.
func readYAML(data []byte, _ string) (*Values, error) {
	var doc goyaml.MapSlice
	if err := goyaml.UnmarshalWithOptions(trimBOM(data), &doc, goyaml.UseOrderedMap()); err != nil {
		return nil, err
	}
	return valuesFromMapSlice(doc), nil
}

func valuesFromMapSlice(ms goyaml.MapSlice) *Values {
	out := NewValues()
	for _, item := range ms {
		out.put(fmt.Sprint(item.Key), yamlValue(item.Value))
	}
	return out
}

func yamlValue(v any) any {
	switch x := v.(type) {
	case goyaml.MapSlice:
		return valuesFromMapSlice(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = yamlValue(x[i])
		}
		return out
	}
	return v
}

// writeYAML emits a block-style mapping with namespace and option docs as
// head comments. Scalars are tagged as strings so they read back through
// converters.
func writeYAML(w io.Writer, ns *Namespace, opts WriteOptions) error {
	root := yamlNamespace(ns, opts)
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	if ns.Doc != "" {
		doc.HeadComment = ns.Doc
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func yamlNamespace(ns *Namespace, opts WriteOptions) *yaml.Node {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range ns.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}

		var valueNode *yaml.Node
		switch e := ns.entries[key].(type) {
		case *Namespace:
			keyNode.HeadComment = e.Doc
			valueNode = yamlNamespace(e, opts)
		default:
			r := renderLeaf(e, opts)
			keyNode.HeadComment = r.doc
			if r.null {
				valueNode = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
			} else {
				valueNode = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: r.text}
			}
		}
		mapping.Content = append(mapping.Content, keyNode, valueNode)
	}
	return mapping
}
