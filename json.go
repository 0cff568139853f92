// FILE: lixenwraith/strata/json.go
package strata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// docKey holds a namespace doc string in JSON and definition mappings.
const docKey = "__doc__"

// readJSON decodes a JSON object keeping member order. Numbers stay json.Number.
func readJSON(data []byte, _ string) (*Values, error) {
	dec := json.NewDecoder(bytes.NewReader(trimBOM(data)))
	dec.UseNumber() // Preserve number precision

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("top-level JSON value must be an object")
	}
	out, err := decodeJSONObject(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected content after top-level JSON object")
	}
	return out, nil
}

// decodeJSONObject reads members up to and including the closing brace.
func decodeJSONObject(dec *json.Decoder) (*Values, error) {
	out := NewValues()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		value, err := decodeJSONValue(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out.put(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return tok, nil
	}
	switch delim {
	case '{':
		return decodeJSONObject(dec)
	case '[':
		var list []any
		for dec.More() {
			item, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

// writeJSON emits nested objects for namespaces and an option record for
// every leaf. Records carry string forms so they read back through converters.
func writeJSON(w io.Writer, ns *Namespace, opts WriteOptions) error {
	var compact bytes.Buffer
	if err := encodeJSONNamespace(&compact, ns, opts); err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, compact.Bytes(), "", "  "); err != nil {
		return err
	}
	pretty.WriteByte('\n')
	_, err := w.Write(pretty.Bytes())
	return err
}

// jsonMember is one ordered object member.
type jsonMember struct {
	key   string
	value any
}

func encodeJSONNamespace(buf *bytes.Buffer, ns *Namespace, opts WriteOptions) error {
	var members []jsonMember
	if ns.Doc != "" {
		members = append(members, jsonMember{docKey, ns.Doc})
	}
	for _, key := range ns.keys {
		members = append(members, jsonMember{key, ns.entries[key]})
	}

	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeJSONString(buf, m.key); err != nil {
			return err
		}
		buf.WriteByte(':')

		var err error
		switch e := m.value.(type) {
		case *Namespace:
			err = encodeJSONNamespace(buf, e, opts)
		case *Option, *Aggregation:
			err = encodeJSONObject(buf, optionRecord(m.key, e, opts))
		default:
			err = encodeJSONScalar(buf, e)
		}
		if err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// optionRecord lists the fields of a leaf in writing order.
func optionRecord(name string, entry any, opts WriteOptions) []jsonMember {
	r := renderLeaf(entry, opts)
	record := []jsonMember{{"name", name}}
	if r.doc != "" {
		record = append(record, jsonMember{"doc", r.doc})
	}

	if opt, isOption := entry.(*Option); isOption {
		var def any
		if opt.Default != nil {
			if s, err := opt.Converter().ToString(opt.Default); err == nil {
				def = s
			}
		}
		if opt.Secret && !opts.ExposeSecrets && def != nil {
			def = secretMask
		}
		record = append(record, jsonMember{"default", def})
	}

	var value any
	if !r.null {
		value = r.text
	}
	record = append(record, jsonMember{"value", value})
	record = append(record, jsonMember{"from_string_converter", string(r.kind)})

	if opt, isOption := entry.(*Option); isOption {
		if opt.Short != "" {
			record = append(record, jsonMember{"short_form", opt.Short})
		}
		if opt.Secret {
			record = append(record, jsonMember{"secret", true})
		}
		if opt.ReferenceValueFrom != "" {
			record = append(record, jsonMember{"reference_value_from", opt.ReferenceValueFrom})
		}
	}
	return record
}

func encodeJSONObject(buf *bytes.Buffer, members []jsonMember) error {
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeJSONString(buf, m.key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encodeJSONScalar(buf, m.value); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeJSONString(buf *bytes.Buffer, s string) error {
	return encodeJSONScalar(buf, s)
}

func encodeJSONScalar(buf *bytes.Buffer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
