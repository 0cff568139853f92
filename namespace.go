// FILE: lixenwraith/strata/namespace.go
package strata

import (
	"fmt"
	"strings"
)

// Namespace is an ordered subtree of options, aggregations and nested namespaces.
type Namespace struct {
	Doc string

	keys    []string
	entries map[string]any
}

// PathEntry pairs a dotted path with the definition found there.
type PathEntry struct {
	Path  string
	Entry any // *Option, *Aggregation or *Namespace
}

// NewNamespace creates an empty namespace.
func NewNamespace(doc string) *Namespace {
	return &Namespace{Doc: doc, entries: make(map[string]any)}
}

// Set installs entry at the dotted path, creating intermediate namespaces.
// Options and aggregations take the final path segment as their name.
// Any other value is wrapped in an option whose default is that value.
func (n *Namespace) Set(path string, entry any) error {
	if path == "" {
		return fmt.Errorf("definition path cannot be empty")
	}
	parent, name, err := n.parentOf(path, true)
	if err != nil {
		return err
	}

	switch e := entry.(type) {
	case *Option:
		e.Name = name
	case *Aggregation:
		e.Name = name
	case *Namespace:
	default:
		entry = &Option{Name: name, Doc: name, Default: entry}
	}
	parent.put(name, entry)
	return nil
}

// Add defines an option at path and returns it for further tuning.
func (n *Namespace) Add(path string, def any, doc string) *Option {
	opt := NewOption(def, doc)
	if err := n.Set(path, opt); err != nil {
		panic(err)
	}
	return opt
}

// Namespace returns the namespace at path, creating it if needed.
func (n *Namespace) Namespace(path string) *Namespace {
	if path == "" {
		return n
	}
	if existing, ok := n.Get(path); ok {
		if ns, isNamespace := existing.(*Namespace); isNamespace {
			return ns
		}
	}
	ns := NewNamespace("")
	if err := n.Set(path, ns); err != nil {
		panic(err)
	}
	return ns
}

func (n *Namespace) put(name string, entry any) {
	if n.entries == nil {
		n.entries = make(map[string]any)
	}
	if _, exists := n.entries[name]; !exists {
		n.keys = append(n.keys, name)
	}
	n.entries[name] = entry
}

// parentOf walks to the namespace holding path. With create, missing
// namespaces along the way are added.
func (n *Namespace) parentOf(path string, create bool) (*Namespace, string, error) {
	segments := splitPath(path)
	current := n
	for i, segment := range segments[:len(segments)-1] {
		next, exists := current.entries[segment]
		if !exists {
			if !create {
				return nil, "", newError(ErrNotAnOption, path, nil, nil)
			}
			sub := NewNamespace("")
			current.put(segment, sub)
			current = sub
			continue
		}
		sub, isNamespace := next.(*Namespace)
		if !isNamespace {
			return nil, "", fmt.Errorf("%q is an option, not a namespace", strings.Join(segments[:i+1], "."))
		}
		current = sub
	}
	return current, segments[len(segments)-1], nil
}

// Get returns the entry at path.
func (n *Namespace) Get(path string) (any, bool) {
	if path == "" {
		return n, true
	}
	current := n
	segments := splitPath(path)
	for i, segment := range segments {
		entry, exists := current.entries[segment]
		if !exists {
			return nil, false
		}
		if i == len(segments)-1 {
			return entry, true
		}
		sub, isNamespace := entry.(*Namespace)
		if !isNamespace {
			return nil, false
		}
		current = sub
	}
	return nil, false
}

// Option returns the option at path.
func (n *Namespace) Option(path string) (*Option, bool) {
	entry, ok := n.Get(path)
	if !ok {
		return nil, false
	}
	opt, isOption := entry.(*Option)
	return opt, isOption
}

// Contains reports whether path names any entry.
func (n *Namespace) Contains(path string) bool {
	_, ok := n.Get(path)
	return ok
}

// Keys returns the direct entry names in insertion order.
func (n *Namespace) Keys() []string {
	return append([]string(nil), n.keys...)
}

// Len returns the number of direct entries.
func (n *Namespace) Len() int {
	return len(n.keys)
}

// SetValue assigns v to the option at path. Missing options are created with
// v as their default unless strict is set.
func (n *Namespace) SetValue(path string, v any, strict bool) error {
	entry, ok := n.Get(path)
	if !ok {
		if strict {
			return newError(ErrNotAnOption, path, v, nil)
		}
		return n.Set(path, &Option{Doc: path, Default: v})
	}

	opt, isOption := entry.(*Option)
	if !isOption {
		return newError(ErrNotAnOption, path, v, fmt.Errorf("%T cannot hold a value", entry))
	}
	if err := opt.SetValue(v); err != nil {
		return withPath(err, path)
	}
	return nil
}

// withPath replaces the path of a resolution error with the full dotted path.
func withPath(err error, path string) error {
	if e, ok := err.(*Error); ok {
		clone := *e
		clone.Path = path
		return &clone
	}
	return err
}

// Walk returns every option and aggregation depth-first in insertion order.
func (n *Namespace) Walk() []PathEntry {
	var out []PathEntry
	var walk func(prefix string, ns *Namespace)
	walk = func(prefix string, ns *Namespace) {
		for _, key := range ns.keys {
			path := joinPath(prefix, key)
			if sub, isNamespace := ns.entries[key].(*Namespace); isNamespace {
				walk(path, sub)
				continue
			}
			out = append(out, PathEntry{Path: path, Entry: ns.entries[key]})
		}
	}
	walk("", n)
	return out
}

// BreadthFirst returns the leaves of each namespace before descending into
// its children. With includeSubtrees, each namespace precedes its content.
func (n *Namespace) BreadthFirst(includeSubtrees bool) []PathEntry {
	var out []PathEntry
	var walk func(prefix string, ns *Namespace)
	walk = func(prefix string, ns *Namespace) {
		for _, key := range ns.keys {
			if _, isNamespace := ns.entries[key].(*Namespace); !isNamespace {
				out = append(out, PathEntry{Path: joinPath(prefix, key), Entry: ns.entries[key]})
			}
		}
		for _, key := range ns.keys {
			sub, isNamespace := ns.entries[key].(*Namespace)
			if !isNamespace {
				continue
			}
			path := joinPath(prefix, key)
			if includeSubtrees {
				out = append(out, PathEntry{Path: path, Entry: sub})
			}
			walk(path, sub)
		}
	}
	walk("", n)
	return out
}

// Options returns every option depth-first with its path.
func (n *Namespace) Options() []PathEntry {
	var out []PathEntry
	for _, e := range n.Walk() {
		if _, isOption := e.Entry.(*Option); isOption {
			out = append(out, e)
		}
	}
	return out
}

// Values builds the resolved view: a deep copy whose leaves are values.
func (n *Namespace) Values() *Values {
	out := NewValues()
	var walk func(prefix string, ns *Namespace, into *Values)
	walk = func(prefix string, ns *Namespace, into *Values) {
		for _, key := range ns.keys {
			switch e := ns.entries[key].(type) {
			case *Namespace:
				sub := NewValues()
				into.put(key, sub)
				walk(joinPath(prefix, key), e, sub)
			case *Option:
				into.put(key, cloneValue(e.Value()))
			case *Aggregation:
				into.put(key, cloneValue(e.Value()))
			}
		}
	}
	walk("", n, out)
	return out
}

// Equal reports structural equality: same paths in the same order with
// equal options and aggregations.
func (n *Namespace) Equal(other *Namespace) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Doc != other.Doc || len(n.keys) != len(other.keys) {
		return false
	}
	for i, key := range n.keys {
		if other.keys[i] != key {
			return false
		}
		switch e := n.entries[key].(type) {
		case *Namespace:
			o, ok := other.entries[key].(*Namespace)
			if !ok || !e.Equal(o) {
				return false
			}
		case *Option:
			o, ok := other.entries[key].(*Option)
			if !ok || !e.Equal(o) {
				return false
			}
		case *Aggregation:
			o, ok := other.entries[key].(*Aggregation)
			if !ok || e.Name != o.Name || e.Doc != o.Doc {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy. Options in the copy are detached from any alias set.
func (n *Namespace) Clone() *Namespace {
	clone := NewNamespace(n.Doc)
	for _, key := range n.keys {
		switch e := n.entries[key].(type) {
		case *Namespace:
			clone.put(key, e.Clone())
		case *Option:
			clone.put(key, e.Clone())
		case *Aggregation:
			clone.put(key, e.Clone())
		}
	}
	return clone
}

// merge installs every entry of src into n. Existing options are replaced;
// namespaces are merged recursively.
func (n *Namespace) merge(src *Namespace) {
	if src.Doc != "" && n.Doc == "" {
		n.Doc = src.Doc
	}
	for _, key := range src.keys {
		entry := src.entries[key]
		sub, isNamespace := entry.(*Namespace)
		if !isNamespace {
			n.put(key, entry)
			continue
		}
		if existing, ok := n.entries[key].(*Namespace); ok {
			existing.merge(sub)
			continue
		}
		n.put(key, sub)
	}
}

// without returns a shallow copy of n lacking the named top-level entries.
func (n *Namespace) without(names ...string) *Namespace {
	skip := make(map[string]bool, len(names))
	for _, name := range names {
		skip[name] = true
	}
	out := NewNamespace(n.Doc)
	for _, key := range n.keys {
		if !skip[key] {
			out.put(key, n.entries[key])
		}
	}
	return out
}

// reset restores every option to its default.
func (n *Namespace) reset() {
	for _, e := range n.Options() {
		e.Entry.(*Option).Reset()
	}
}
