// FILE: lixenwraith/strata/definition.go
package strata

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefinitionHandler loads one kind of definition source into a namespace.
type DefinitionHandler struct {
	Name    string
	Accepts func(src any) bool
	Load    func(dst *Namespace, src any) error
}

var definitionHandlers struct {
	sync.RWMutex
	list []DefinitionHandler
}

func init() {
	for _, h := range []DefinitionHandler{
		{
			Name:    "namespace",
			Accepts: func(src any) bool { _, ok := src.(*Namespace); return ok },
			Load: func(dst *Namespace, src any) error {
				return loadNamespace(dst, src.(*Namespace))
			},
		},
		{
			Name:    "module",
			Accepts: func(src any) bool { _, ok := src.(*Module); return ok },
			Load: func(dst *Namespace, src any) error {
				return loadModule(dst, src.(*Module))
			},
		},
		{
			Name:    "required config",
			Accepts: func(src any) bool { _, ok := src.(HasRequiredConfig); return ok },
			Load: func(dst *Namespace, src any) error {
				ns, ok := requiredConfigOf(src)
				if !ok {
					return nil
				}
				return loadNamespace(dst, ns)
			},
		},
		{
			Name:    "values",
			Accepts: func(src any) bool { _, ok := src.(*Values); return ok },
			Load: func(dst *Namespace, src any) error {
				return loadMapping(dst, src.(*Values))
			},
		},
		{
			Name: "mapping",
			Accepts: func(src any) bool {
				switch src.(type) {
				case map[string]any, map[string]string:
					return true
				}
				return false
			},
			Load: func(dst *Namespace, src any) error {
				values, _ := asValues(src)
				return loadMapping(dst, values)
			},
		},
		{
			Name:    "text",
			Accepts: func(src any) bool { _, ok := src.(string); return ok },
			Load: func(dst *Namespace, src any) error {
				return loadText(dst, src.(string))
			},
		},
		{
			Name:    "struct",
			Accepts: isStructSource,
			Load:    loadStruct,
		},
	} {
		RegisterDefinitionHandler(h)
	}
}

// RegisterDefinitionHandler appends a handler. Handlers are consulted in
// registration order and the first that accepts a source loads it.
func RegisterDefinitionHandler(h DefinitionHandler) {
	definitionHandlers.Lock()
	defer definitionHandlers.Unlock()
	definitionHandlers.list = append(definitionHandlers.list, h)
}

// LoadDefinitions loads every source into dst in order. Sources are parsed
// concurrently into separate namespaces and merged afterwards, so a later
// source replaces options of an earlier one.
func LoadDefinitions(dst *Namespace, sources ...any) error {
	parts := make([]*Namespace, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			part := NewNamespace("")
			if err := loadDefinition(part, src); err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, part := range parts {
		dst.merge(part)
	}
	return nil
}

func loadDefinition(dst *Namespace, src any) error {
	definitionHandlers.RLock()
	handlers := append([]DefinitionHandler(nil), definitionHandlers.list...)
	definitionHandlers.RUnlock()

	for _, h := range handlers {
		if h.Accepts(src) {
			return h.Load(dst, src)
		}
	}
	return newError(ErrUnknownDefinitionType, "", fmt.Sprintf("%T", src), nil)
}

// loadNamespace installs a copy of src with every option reset to its default.
func loadNamespace(dst *Namespace, src *Namespace) error {
	clone := src.Clone()
	clone.reset()
	dst.merge(clone)
	return nil
}

// loadModule installs the module's public symbols, then its own required configuration.
func loadModule(dst *Namespace, m *Module) error {
	if dst.Doc == "" {
		dst.Doc = m.Doc
	}
	symbols := NewValues()
	for _, symbol := range m.Symbols() {
		symbols.put(symbol.Name, symbol.Value)
	}
	if err := loadMapping(dst, symbols); err != nil {
		return err
	}
	if ns := m.RequiredConfig(); ns != nil {
		return loadNamespace(dst, ns)
	}
	return nil
}

// loadText treats s as JSON text when it parses, as a file path otherwise.
func loadText(dst *Namespace, s string) error {
	if isJSONText(s) {
		values, err := readJSON([]byte(strings.TrimSpace(s)), "")
		if err != nil {
			return err
		}
		return loadMapping(dst, values)
	}

	if FormatOf(s) == FormatModule {
		m, err := loadModuleFile(s)
		if err != nil {
			return err
		}
		return loadModule(dst, m)
	}

	values, err := readDefinitionFile(s)
	if err != nil {
		return err
	}
	return loadMapping(dst, values)
}

// loadMapping applies the mapping rule to each member of an ordered mapping.
func loadMapping(dst *Namespace, m *Values) error {
	for _, key := range m.keys {
		value := m.items[key]

		if key == docKey {
			dst.Doc = fmt.Sprint(value)
			continue
		}
		if strings.HasPrefix(key, "__") {
			continue
		}

		if err := loadMember(dst, key, value); err != nil {
			return err
		}
	}
	return nil
}

func loadMember(dst *Namespace, key string, value any) error {
	switch v := value.(type) {
	case *Option:
		opt := v.Clone()
		opt.Reset()
		return dst.Set(key, opt)
	case *Aggregation:
		return dst.Set(key, v.Clone())
	case *Namespace:
		return loadNamespace(dst.Namespace(key), v)
	case *Class:
		sub := dst.Namespace(key)
		if sub.Doc == "" {
			sub.Doc = v.Doc
		}
		if ns := v.RequiredConfig(); ns != nil {
			return loadNamespace(sub, ns)
		}
		return nil
	case *Module:
		return loadModule(dst.Namespace(key), v)
	case *Values:
		if opt, ok, err := optionFromLiteral(v); ok || err != nil {
			if err != nil {
				return withPath(err, key)
			}
			return dst.Set(key, opt)
		}
		return loadMapping(dst.Namespace(key), v)
	case map[string]any, map[string]string:
		values, _ := asValues(v)
		return loadMember(dst, key, values)
	default:
		return dst.Set(key, &Option{Doc: key, Default: literalValue(v)})
	}
}

// optionFromLiteral builds an option from a record carrying name and default.
func optionFromLiteral(v *Values) (*Option, bool, error) {
	_, hasName := v.items["name"]
	def, hasDefault := v.items["default"]
	if !hasName || !hasDefault {
		return nil, false, nil
	}

	opt := &Option{Doc: fmt.Sprint(valueOr(v.items["doc"], ""))}
	if short, ok := v.items["short_form"]; ok && short != nil {
		opt.Short = fmt.Sprint(short)
	}
	if ref, ok := v.items["reference_value_from"]; ok && ref != nil {
		opt.ReferenceValueFrom = fmt.Sprint(ref)
	}
	for _, key := range []string{"secret", "is_secret"} {
		if secret, ok := v.items[key]; ok {
			flag, _ := boolFromString(fmt.Sprint(secret))
			opt.Secret = flag.(bool)
		}
	}

	if conv, ok := v.items["from_string_converter"]; ok && conv != nil {
		kind, err := converterKind(fmt.Sprint(conv))
		if err != nil {
			return nil, true, err
		}
		opt.Kind = kind
	}

	def = literalValue(def)
	if s, isString := def.(string); isString && opt.Kind != "" && opt.Kind != KindString {
		converted, err := opt.convert(s)
		if err != nil {
			return nil, true, err
		}
		def = converted
	}
	opt.Default = def
	opt.Name = fmt.Sprint(v.items["name"])
	return opt, true, nil
}

// converterKind resolves a converter name: a registered kind or a dotted
// reference to a Kind or Converter. Unknown names, such as the type names
// writers emit for identity converters, select the identity conversion.
func converterKind(name string) (Kind, error) {
	if _, ok := LookupConverter(Kind(name)); ok {
		return Kind(name), nil
	}
	ref, err := Lookup(name)
	if err != nil {
		return Kind(name), nil
	}
	switch c := ref.(type) {
	case Kind:
		return c, nil
	case Converter:
		RegisterConverter(c)
		return c.Kind, nil
	}
	return "", newError(ErrUnknownReference, "", name, fmt.Errorf("%T is not a converter", ref))
}

// literalValue turns decoded numbers into Go numbers and keeps everything else.
func literalValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func valueOr(v, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}

func isStructSource(src any) bool {
	switch src.(type) {
	case *Option, *Aggregation:
		return false
	}
	rv := reflect.ValueOf(src)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}
