// FILE: lixenwraith/strata/expand.go
package strata

import (
	"errors"

	"go.uber.org/zap"
)

// expand installs the required configuration of every option value that
// declares one. Definitions land in the namespace holding the option, next
// to it rather than under it. It reports whether any new path appeared.
func (r *resolver) expand(ns *Namespace) bool {
	changed := false

	for _, e := range ns.Options() {
		opt := e.Entry.(*Option)
		required, ok := requiredConfigOf(opt.Value())
		if !ok {
			continue
		}

		name, _ := NameOf(opt.Value())
		key := e.Path + "=" + name
		if r.expanded[key] {
			continue
		}
		r.expanded[key] = true

		parent, _ := parentPath(e.Path)
		required.reset()
		added := installMissing(ns.Namespace(parent), required)
		if added > 0 {
			changed = true
		}
		r.logger.Debug("expanded required config",
			zap.String("path", e.Path),
			zap.String("reference", name),
			zap.Int("added", added))
	}
	return changed
}

// installMissing copies entries of src absent from dst, descending into
// namespaces present in both. It returns the number of entries added.
func installMissing(dst, src *Namespace) int {
	added := 0
	if dst.Doc == "" {
		dst.Doc = src.Doc
	}
	for _, key := range src.keys {
		entry := src.entries[key]
		existing, exists := dst.entries[key]
		if !exists {
			dst.put(key, entry)
			added++
			continue
		}
		sub, srcIsNamespace := entry.(*Namespace)
		into, dstIsNamespace := existing.(*Namespace)
		if srcIsNamespace && dstIsNamespace {
			added += installMissing(into, sub)
		}
	}
	return added
}

// link joins every option declaring a reference path with the option at that
// path. A missing target receives a copy of the referring option.
func (r *resolver) link(ns *Namespace) error {
	for _, e := range ns.Options() {
		opt := e.Entry.(*Option)
		ref := opt.ReferenceValueFrom
		if ref == "" || ref == e.Path {
			continue
		}

		target, ok := ns.Option(ref)
		if !ok {
			if ns.Contains(ref) {
				return newError(ErrReferenceConflict, e.Path, ref, errors.New("reference target is not an option"))
			}
			target = opt.Clone()
			target.ReferenceValueFrom = ""
			target.Reset()
			if err := ns.Set(ref, target); err != nil {
				return newError(ErrReferenceConflict, e.Path, ref, err)
			}
			r.logger.Debug("created reference target", zap.String("path", ref))
		}

		if err := linkOptions(e.Path, opt, target); err != nil {
			return err
		}
	}
	return nil
}
