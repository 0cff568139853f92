// FILE: lixenwraith/strata/reference.go
package strata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// HasRequiredConfig is implemented by values that declare more configuration.
// When an option resolves to such a value, its namespace is installed next to
// the option and resolved against the same sources.
type HasRequiredConfig interface {
	RequiredConfig() *Namespace
}

// qualifiedNamer is implemented by values that know their dotted reference name.
type qualifiedNamer interface {
	QualifiedName() string
}

// Class is a named component carrying its own option definitions.
type Class struct {
	Name   string     // dotted reference name, e.g. "storage.Postgres"
	Doc    string
	Config *Namespace // definitions installed when an option selects this class
}

// QualifiedName returns the dotted reference name.
func (c *Class) QualifiedName() string {
	return c.Name
}

// RequiredConfig returns a fresh copy of the class definitions.
func (c *Class) RequiredConfig() *Namespace {
	if c.Config == nil {
		return nil
	}
	return c.Config.Clone()
}

// String implements fmt.Stringer.
func (c *Class) String() string {
	return c.Name
}

// Module is an ordered collection of named symbols, the unit a dotted
// reference prefix resolves to.
type Module struct {
	Name string
	Doc  string
	// IgnoreSymbols lists symbol names excluded from definition snapshots.
	IgnoreSymbols []string
	// AlwaysIgnoreMismatches makes a module value source lenient.
	AlwaysIgnoreMismatches bool

	names   []string
	symbols map[string]any
}

// Symbol is a public module entry.
type Symbol struct {
	Name  string
	Value any
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, symbols: make(map[string]any)}
}

// Define adds or replaces a symbol and returns the module for chaining.
func (m *Module) Define(name string, value any) *Module {
	if m.symbols == nil {
		m.symbols = make(map[string]any)
	}
	if _, exists := m.symbols[name]; !exists {
		m.names = append(m.names, name)
	}
	m.symbols[name] = value
	return m
}

// Lookup returns the symbol called name.
func (m *Module) Lookup(name string) (any, bool) {
	v, ok := m.symbols[name]
	return v, ok
}

// Symbols returns the public symbols in definition order. Names starting with
// an underscore, names in IgnoreSymbols and nested modules are excluded.
func (m *Module) Symbols() []Symbol {
	ignored := make(map[string]bool, len(m.IgnoreSymbols))
	for _, name := range m.IgnoreSymbols {
		ignored[name] = true
	}

	var out []Symbol
	for _, name := range m.names {
		if strings.HasPrefix(name, "_") || ignored[name] || name == requiredConfigSymbol {
			continue
		}
		if _, isModule := m.symbols[name].(*Module); isModule {
			continue
		}
		out = append(out, Symbol{Name: name, Value: m.symbols[name]})
	}
	return out
}

// requiredConfigSymbol is the module symbol holding a module's own definitions.
const requiredConfigSymbol = "required_config"

// QualifiedName returns the dotted module name.
func (m *Module) QualifiedName() string {
	return m.Name
}

// RequiredConfig returns the namespace stored under the required_config symbol.
func (m *Module) RequiredConfig() *Namespace {
	if ns, ok := m.symbols[requiredConfigSymbol].(*Namespace); ok {
		return ns.Clone()
	}
	return nil
}

// String implements fmt.Stringer.
func (m *Module) String() string {
	return m.Name
}

var registry = struct {
	sync.RWMutex
	modules map[string]*Module
	order   []string // module names in registration order
}{modules: make(map[string]*Module)}

// builtins are the names a single-identifier reference resolves against.
var builtins = map[string]any{
	string(KindInt):       KindInt,
	string(KindFloat):     KindFloat,
	string(KindString):    KindString,
	string(KindBool):      KindBool,
	string(KindTimestamp): KindTimestamp,
	string(KindDate):      KindDate,
	string(KindDuration):  KindDuration,
	string(KindReference): KindReference,
	string(KindPattern):   KindPattern,
	string(KindList):      KindList,
}

// RegisterModule makes m and its symbols resolvable by dotted reference.
// Parent modules are created as needed so references can walk down to m.
func RegisterModule(m *Module) {
	registry.Lock()
	defer registry.Unlock()
	registerModuleLocked(m)
}

func registerModuleLocked(m *Module) {
	if _, exists := registry.modules[m.Name]; !exists {
		registry.order = append(registry.order, m.Name)
	}
	registry.modules[m.Name] = m

	parent, name := parentPath(m.Name)
	if parent == "" {
		return
	}
	pm, exists := registry.modules[parent]
	if !exists {
		pm = NewModule(parent)
		registerModuleLocked(pm)
	}
	pm.Define(name, m)
}

// Register makes value resolvable under the dotted path. The prefix before the
// last dot names its module, which is created if needed.
func Register(path string, value any) error {
	parent, name := parentPath(path)
	if parent == "" || !isValidKeySegment(name) {
		return fmt.Errorf("invalid reference path %q, expected module.name", path)
	}

	registry.Lock()
	defer registry.Unlock()

	m, exists := registry.modules[parent]
	if !exists {
		m = NewModule(parent)
		registerModuleLocked(m)
	}
	m.Define(name, value)
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(path string, value any) {
	if err := Register(path, value); err != nil {
		panic(err)
	}
}

// Lookup resolves a dotted reference. A single identifier resolves against the
// built-ins; otherwise the longest registered module prefix is taken and the
// remaining segments are walked through nested modules.
func Lookup(path string) (any, error) {
	if path == "" {
		return nil, newError(ErrUnknownReference, "", path, fmt.Errorf("empty reference"))
	}

	registry.RLock()
	defer registry.RUnlock()

	segments := splitPath(path)
	if len(segments) == 1 {
		if v, ok := builtins[path]; ok {
			return v, nil
		}
		if m, ok := registry.modules[path]; ok {
			return m, nil
		}
		return nil, newError(ErrUnknownReference, "", path, fmt.Errorf("no built-in named %q", path))
	}

	for i := len(segments); i > 0; i-- {
		m, ok := registry.modules[strings.Join(segments[:i], ".")]
		if !ok {
			continue
		}
		var current any = m
		for _, segment := range segments[i:] {
			mod, isModule := current.(*Module)
			if !isModule {
				return nil, newError(ErrUnknownReference, "", path, fmt.Errorf("%q is not a module", segment))
			}
			next, found := mod.Lookup(segment)
			if !found {
				return nil, newError(ErrUnknownReference, "", path, fmt.Errorf("module %q has no symbol %q", mod.Name, segment))
			}
			current = next
		}
		return current, nil
	}

	return nil, newError(ErrUnknownReference, "", path, fmt.Errorf("no module prefix of %q is registered", path))
}

// NameOf returns the dotted reference name of v. A value registered under
// several paths is named by the first one registered.
func NameOf(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if named, ok := v.(qualifiedNamer); ok {
		return named.QualifiedName(), true
	}
	if kind, ok := v.(Kind); ok {
		if _, builtin := builtins[string(kind)]; builtin {
			return string(kind), true
		}
	}

	registry.RLock()
	defer registry.RUnlock()

	for _, moduleName := range registry.order {
		m := registry.modules[moduleName]
		for _, name := range m.names {
			if sameValue(m.symbols[name], v) {
				return m.Name + "." + name, true
			}
		}
	}
	return "", false
}

// sameValue compares by identity where possible; functions compare by code pointer.
func sameValue(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}

// requiredConfigOf returns the definitions declared by an option value.
func requiredConfigOf(v any) (*Namespace, bool) {
	holder, ok := v.(HasRequiredConfig)
	if !ok || isNilValue(v) {
		return nil, false
	}
	ns := holder.RequiredConfig()
	if ns == nil {
		return nil, false
	}
	return ns, true
}

func isNilValue(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return v == nil
}
