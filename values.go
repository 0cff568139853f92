// FILE: lixenwraith/strata/values.go
package strata

import (
	"sort"
	"strings"
)

// Values is an insertion-ordered nested mapping addressed by dotted paths.
// Leaves are plain values, subtrees are *Values. It is the shape every value
// source returns and the shape of the resolved view handed to callers.
type Values struct {
	keys    []string
	items   map[string]any
	acquire bool
}

// PathValue pairs a dotted path with the value found there.
type PathValue struct {
	Path  string
	Value any
}

// NewValues creates an empty tree.
func NewValues() *Values {
	return &Values{items: make(map[string]any)}
}

// Set stores value at the dotted path, creating intermediate subtrees as needed.
// A leaf found where a subtree is required is replaced by a new subtree.
func (v *Values) Set(path string, value any) {
	segments := splitPath(path)
	current := v

	for _, segment := range segments[:len(segments)-1] {
		next, exists := current.items[segment]
		sub, isTree := next.(*Values)
		if !exists || !isTree {
			sub = NewValues()
			current.put(segment, sub)
		}
		current = sub
	}

	current.put(segments[len(segments)-1], value)
}

func (v *Values) put(key string, value any) {
	if v.items == nil {
		v.items = make(map[string]any)
	}
	if _, exists := v.items[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.items[key] = value
}

// Get returns the leaf or subtree at path. On a tree returned by Acquiring,
// a missing a.b.c.x falls back to a.b.x, then a.x, then x.
func (v *Values) Get(path string) (any, bool) {
	if val, ok := v.lookup(splitPath(path)); ok {
		return val, true
	}
	if !v.acquire {
		return nil, false
	}

	segments := splitPath(path)
	name := segments[len(segments)-1]
	parents := segments[:len(segments)-1]
	for i := len(parents) - 1; i >= 0; i-- {
		candidate := append(append([]string{}, parents[:i]...), name)
		if val, ok := v.lookup(candidate); ok {
			return val, true
		}
	}
	return nil, false
}

func (v *Values) lookup(segments []string) (any, bool) {
	current := v
	for i, segment := range segments {
		val, exists := current.items[segment]
		if !exists {
			return nil, false
		}
		if i == len(segments)-1 {
			return val, true
		}
		sub, isTree := val.(*Values)
		if !isTree {
			return nil, false
		}
		current = sub
	}
	return nil, false
}

// Contains reports whether path names a leaf or subtree.
func (v *Values) Contains(path string) bool {
	_, ok := v.Get(path)
	return ok
}

// Keys returns the direct child names in insertion order.
func (v *Values) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Len returns the number of direct children.
func (v *Values) Len() int {
	return len(v.keys)
}

// Acquiring returns a copy of the tree whose Get falls back up the path chain.
func (v *Values) Acquiring() *Values {
	clone := v.Clone()
	clone.acquire = true
	return clone
}

// Leaves returns every leaf depth-first in insertion order.
func (v *Values) Leaves() []PathValue {
	var out []PathValue
	var walk func(prefix string, tree *Values)
	walk = func(prefix string, tree *Values) {
		for _, key := range tree.keys {
			path := joinPath(prefix, key)
			if sub, isTree := tree.items[key].(*Values); isTree {
				walk(path, sub)
				continue
			}
			out = append(out, PathValue{Path: path, Value: tree.items[key]})
		}
	}
	walk("", v)
	return out
}

// BreadthFirst returns the leaves of each subtree before descending into its
// children. With includeSubtrees, every subtree is emitted ahead of its content.
func (v *Values) BreadthFirst(includeSubtrees bool) []PathValue {
	var out []PathValue
	var walk func(prefix string, tree *Values)
	walk = func(prefix string, tree *Values) {
		for _, key := range tree.keys {
			if _, isTree := tree.items[key].(*Values); !isTree {
				out = append(out, PathValue{Path: joinPath(prefix, key), Value: tree.items[key]})
			}
		}
		for _, key := range tree.keys {
			sub, isTree := tree.items[key].(*Values)
			if !isTree {
				continue
			}
			path := joinPath(prefix, key)
			if includeSubtrees {
				out = append(out, PathValue{Path: path, Value: sub})
			}
			walk(path, sub)
		}
	}
	walk("", v)
	return out
}

// Merge copies every leaf of src into v. Leaves already present are overridden.
func (v *Values) Merge(src *Values) {
	if src == nil {
		return
	}
	for _, leaf := range src.Leaves() {
		v.Set(leaf.Path, leaf.Value)
	}
}

// Equal reports structural equality over leaf paths and leaf values.
func (v *Values) Equal(other *Values) bool {
	if v == nil || other == nil {
		return v == other
	}
	mine, theirs := v.Leaves(), other.Leaves()
	if len(mine) != len(theirs) {
		return false
	}
	index := make(map[string]any, len(theirs))
	for _, leaf := range theirs {
		index[leaf.Path] = leaf.Value
	}
	for _, leaf := range mine {
		val, exists := index[leaf.Path]
		if !exists || !valuesEqual(leaf.Value, val) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the tree.
func (v *Values) Clone() *Values {
	clone := &Values{
		keys:    append([]string(nil), v.keys...),
		items:   make(map[string]any, len(v.items)),
		acquire: v.acquire,
	}
	for key, val := range v.items {
		if sub, isTree := val.(*Values); isTree {
			clone.items[key] = sub.Clone()
			continue
		}
		clone.items[key] = cloneValue(val)
	}
	return clone
}

// Map converts the tree into nested map[string]any values.
func (v *Values) Map() map[string]any {
	out := make(map[string]any, len(v.items))
	for key, val := range v.items {
		if sub, isTree := val.(*Values); isTree {
			out[key] = sub.Map()
			continue
		}
		out[key] = val
	}
	return out
}

// valuesFromMap builds an ordered tree from a Go map. Keys are taken in sorted
// order, flat dotted keys first, so a nested form of the same path wins.
// translate, when non-nil, rewrites each top-level key before it is split.
func valuesFromMap(m map[string]any, translate func(string) string) *Values {
	out := NewValues()

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	type pending struct {
		path  string
		value any
	}
	var flat, nested []pending
	for _, key := range keys {
		path := key
		if translate != nil {
			path = translate(key)
		}
		if path == "" {
			continue
		}
		if strings.Contains(path, ".") {
			flat = append(flat, pending{path, m[key]})
		} else {
			nested = append(nested, pending{path, m[key]})
		}
	}

	for _, group := range [][]pending{flat, nested} {
		for _, p := range group {
			if sub, ok := asValues(p.value); ok {
				for _, leaf := range sub.Leaves() {
					out.Set(joinPath(p.path, leaf.Path), leaf.Value)
				}
				continue
			}
			out.Set(p.path, p.value)
		}
	}
	return out
}

// asValues converts the nested map shapes accepted from callers into *Values.
func asValues(v any) (*Values, bool) {
	switch m := v.(type) {
	case *Values:
		return m, true
	case map[string]any:
		return valuesFromMap(m, nil), true
	case map[string]string:
		converted := make(map[string]any, len(m))
		for k, s := range m {
			converted[k] = s
		}
		return valuesFromMap(converted, nil), true
	}
	return nil, false
}

// normalize expands dotted keys at every level. Flat keys are applied before
// nested ones so that a nested form of the same path takes precedence.
func (v *Values) normalize() *Values {
	out := NewValues()

	var flat, nested []string
	for _, key := range v.keys {
		if strings.Contains(key, ".") {
			flat = append(flat, key)
		} else {
			nested = append(nested, key)
		}
	}

	for _, key := range append(flat, nested...) {
		sub, isTree := v.items[key].(*Values)
		if !isTree {
			out.Set(key, v.items[key])
			continue
		}
		if sub.Len() == 0 {
			if _, exists := out.Get(key); !exists {
				out.Set(key, NewValues())
			}
			continue
		}
		for _, leaf := range sub.normalize().Leaves() {
			out.Set(joinPath(key, leaf.Path), leaf.Value)
		}
	}
	return out
}

// optionLiteral reports whether a subtree is an option record as written by
// the JSON and YAML writers, and returns the value it carries.
func optionLiteral(v *Values) (any, bool) {
	if _, hasName := v.items["name"]; !hasName {
		return nil, false
	}
	_, hasDefault := v.items["default"]
	value, hasValue := v.items["value"]
	if !hasDefault && !hasValue {
		return nil, false
	}
	for _, key := range v.keys {
		if _, isTree := v.items[key].(*Values); isTree {
			return nil, false
		}
	}
	if hasValue {
		return value, true
	}
	return v.items["default"], true
}

// collapseLiterals replaces option records by the value they carry and
// renders scalars as converter input strings. Keys starting with "__" are dropped.
func (v *Values) collapseLiterals() *Values {
	out := NewValues()
	for _, key := range v.keys {
		if strings.HasPrefix(key, "__") {
			// Metadata such as namespace docs
			continue
		}
		sub, isTree := v.items[key].(*Values)
		if !isTree {
			out.put(key, scalarString(v.items[key]))
			continue
		}
		if value, ok := optionLiteral(sub); ok {
			out.put(key, scalarString(value))
			continue
		}
		out.put(key, sub.collapseLiterals())
	}
	return out
}
