// FILE: lixenwraith/strata/source.go
package strata

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
)

// Source supplies values for already defined options. Values may return flat
// dotted keys, nested subtrees or both; the overlay engine accepts either.
type Source interface {
	// Name identifies the source in errors and origin tracking.
	Name() string
	// AlwaysIgnoreMismatches makes the overlay skip unknown keys regardless of strictness.
	AlwaysIgnoreMismatches() bool
	// Values returns the source content. ns is the current definition tree and
	// ignore reports whether mismatches will be skipped.
	Values(ns *Namespace, ignore bool) (*Values, error)
}

// MapSource serves an in-memory mapping.
type MapSource struct {
	name    string
	values  *Values
	lenient bool
}

// NewMapSource wraps a map[string]any, map[string]string or *Values.
// Keys that are not all upper case have "__" translated to ".".
func NewMapSource(name string, m any) (*MapSource, error) {
	var values *Values
	switch x := m.(type) {
	case *Values:
		values = NewValues()
		for _, key := range x.keys {
			values.Set(translateMappingKey(key), x.items[key])
		}
		values = values.normalize()
	case map[string]any:
		values = valuesFromMap(x, translateMappingKey)
	case map[string]string:
		converted := make(map[string]any, len(x))
		for k, v := range x {
			converted[k] = v
		}
		values = valuesFromMap(converted, translateMappingKey)
	default:
		return nil, newError(ErrCantHandleType, "", fmt.Sprintf("%T", m), nil)
	}
	if name == "" {
		name = "mapping"
	}
	return &MapSource{name: name, values: values}, nil
}

// Lenient returns a copy of the source that ignores mismatches.
func (s *MapSource) Lenient() *MapSource {
	clone := *s
	clone.lenient = true
	return &clone
}

// Name implements Source.
func (s *MapSource) Name() string {
	return s.name
}

// AlwaysIgnoreMismatches implements Source.
func (s *MapSource) AlwaysIgnoreMismatches() bool {
	return s.lenient
}

// Values implements Source.
func (s *MapSource) Values(_ *Namespace, _ bool) (*Values, error) {
	return s.values.Clone(), nil
}

func translateMappingKey(key string) string {
	if isUpper(key) {
		return key
	}
	return strings.ReplaceAll(key, "__", ".")
}

// Environ is a list of KEY=value pairs in the format of os.Environ.
type Environ []string

// EnvSource serves process environment variables. The environment always
// carries unrelated keys, so mismatches are ignored.
type EnvSource struct {
	environ Environ
}

// NewEnvSource creates an environment source. A nil environ reads os.Environ
// on every pass.
func NewEnvSource(environ Environ) *EnvSource {
	return &EnvSource{environ: environ}
}

// Name implements Source.
func (s *EnvSource) Name() string {
	return "env"
}

// AlwaysIgnoreMismatches implements Source.
func (s *EnvSource) AlwaysIgnoreMismatches() bool {
	return true
}

// Values implements Source.
func (s *EnvSource) Values(ns *Namespace, _ bool) (*Values, error) {
	environ := s.environ
	if environ == nil {
		environ = os.Environ()
	}
	return envValues(parseEnviron(environ), ns), nil
}

// parseEnviron keeps the KEY=value pairs in order; later duplicates win.
func parseEnviron(environ []string) *Values {
	raw := NewValues()
	for _, kv := range environ {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			continue
		}
		raw.put(key, value)
	}
	return raw
}

// envValues maps environment keys onto option paths. Upper case keys with
// "__" become dotted paths matched case-insensitively. Other upper case keys
// are kept verbatim and the rest follow the mapping translation.
func envValues(raw *Values, ns *Namespace) *Values {
	index := make(map[string]string)
	if ns != nil {
		for _, e := range ns.Walk() {
			index[strings.ToLower(e.Path)] = e.Path
		}
	}

	out := NewValues()
	for _, key := range raw.keys {
		value := scalarString(raw.items[key])
		switch {
		case isUpper(key) && strings.Contains(key, "__"):
			path := strings.ReplaceAll(key, "__", ".")
			if actual, ok := index[strings.ToLower(path)]; ok {
				path = actual
			}
			out.Set(path, value)
		case isUpper(key):
			out.put(key, value)
		default:
			out.Set(translateMappingKey(key), value)
		}
	}
	return out
}

// ModuleSource serves the public symbols of a module. Classes contribute
// the defaults of their required configuration as subtrees.
type ModuleSource struct {
	module *Module
}

// NewModuleSource wraps m.
func NewModuleSource(m *Module) *ModuleSource {
	return &ModuleSource{module: m}
}

// Name implements Source.
func (s *ModuleSource) Name() string {
	return "module:" + s.module.Name
}

// AlwaysIgnoreMismatches implements Source.
func (s *ModuleSource) AlwaysIgnoreMismatches() bool {
	return s.module.AlwaysIgnoreMismatches
}

// Values implements Source.
func (s *ModuleSource) Values(_ *Namespace, _ bool) (*Values, error) {
	return moduleValues(s.module), nil
}

func moduleValues(m *Module) *Values {
	out := NewValues()
	for _, symbol := range m.Symbols() {
		switch v := symbol.Value.(type) {
		case *Class:
			if ns := v.RequiredConfig(); ns != nil {
				out.put(symbol.Name, ns.Values())
			}
		case *Namespace:
			out.put(symbol.Name, v.Values())
		case *Option:
			out.put(symbol.Name, v.Value())
		case *Aggregation:
		default:
			out.put(symbol.Name, v)
		}
	}
	return out.normalize()
}

// SourceAdapter wraps raw values of the listed kinds into a Source.
type SourceAdapter struct {
	Name  string
	Kinds []reflect.Type
	New   func(raw any) (Source, error)
}

func (a SourceAdapter) canHandle(t reflect.Type) bool {
	for _, k := range a.Kinds {
		if t == k || (k.Kind() == reflect.Interface && t.Implements(k)) {
			return true
		}
	}
	return false
}

var sourceAdapters struct {
	sync.RWMutex
	list []SourceAdapter
}

func init() {
	for _, a := range []SourceAdapter{
		{
			Name:  "source",
			Kinds: []reflect.Type{reflect.TypeOf((*Source)(nil)).Elem()},
			New: func(raw any) (Source, error) {
				return raw.(Source), nil
			},
		},
		{
			Name: "mapping",
			Kinds: []reflect.Type{
				reflect.TypeOf(map[string]any(nil)),
				reflect.TypeOf(map[string]string(nil)),
				reflect.TypeOf((*Values)(nil)),
			},
			New: func(raw any) (Source, error) {
				return NewMapSource("", raw)
			},
		},
		{
			Name:  "environment",
			Kinds: []reflect.Type{reflect.TypeOf(Environ(nil))},
			New: func(raw any) (Source, error) {
				return NewEnvSource(raw.(Environ)), nil
			},
		},
		{
			Name:  "argv",
			Kinds: []reflect.Type{reflect.TypeOf([]string(nil))},
			New: func(raw any) (Source, error) {
				return NewArgsSource(raw.([]string)), nil
			},
		},
		{
			Name:  "file",
			Kinds: []reflect.Type{reflect.TypeOf("")},
			New: func(raw any) (Source, error) {
				path := raw.(string)
				if path == "" {
					return nil, newError(ErrCantHandleType, "", path, errors.New("empty file path"))
				}
				return NewFileSource(path), nil
			},
		},
		{
			Name:  "module",
			Kinds: []reflect.Type{reflect.TypeOf((*Module)(nil))},
			New: func(raw any) (Source, error) {
				return NewModuleSource(raw.(*Module)), nil
			},
		},
	} {
		RegisterSourceAdapter(a)
	}
}

// RegisterSourceAdapter appends an adapter to the dispatch table. Adapters
// are tried in registration order.
func RegisterSourceAdapter(a SourceAdapter) {
	sourceAdapters.Lock()
	defer sourceAdapters.Unlock()
	sourceAdapters.list = append(sourceAdapters.list, a)
}

// WrapSource turns a raw value source into a Source using the first
// registered adapter that accepts its kind and succeeds.
func WrapSource(raw any) (Source, error) {
	if raw == nil {
		return nil, newError(ErrNoHandlerForType, "", "nil", nil)
	}

	sourceAdapters.RLock()
	adapters := append([]SourceAdapter(nil), sourceAdapters.list...)
	sourceAdapters.RUnlock()

	t := reflect.TypeOf(raw)
	var errs []error
	matched := false
	for _, a := range adapters {
		if !a.canHandle(t) {
			continue
		}
		matched = true
		src, err := a.New(raw)
		if err == nil {
			return src, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
	}

	if !matched {
		return nil, newError(ErrNoHandlerForType, "", t.String(), nil)
	}
	return nil, newError(ErrAllHandlersFailed, "", t.String(), errors.Join(errs...))
}
