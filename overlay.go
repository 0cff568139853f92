// FILE: lixenwraith/strata/overlay.go
package strata

import (
	"fmt"

	"go.uber.org/zap"
)

// mismatch is a source key that matched no option.
type mismatch struct {
	path   string
	value  any
	source string
}

// overlay applies sources to ns in order, later sources overriding earlier
// ones. Keys matching no option are returned for sources that care about
// mismatches; the caller reports them once the tree stops growing.
func (r *resolver) overlay(ns *Namespace, sources []Source, lenient bool) ([]mismatch, error) {
	var mismatches []mismatch

	for _, src := range sources {
		ignore := src.AlwaysIgnoreMismatches() || lenient

		values, err := src.Values(ns, ignore)
		if err != nil {
			return nil, withSource(err, src.Name())
		}

		// Alias sets assigned by this source, to catch differing values
		assigned := make(map[*cell]any)

		for _, leaf := range values.normalize().Leaves() {
			entry, _ := ns.Get(leaf.Path)
			switch e := entry.(type) {
			case *Option:
				if err := r.assign(e, leaf.Path, leaf.Value, src, ignore, assigned); err != nil {
					return nil, err
				}
			case *Aggregation:
				// Computed after resolution
			default:
				if ignore {
					r.logger.Debug("skipping key without option",
						zap.String("path", leaf.Path),
						zap.String("source", src.Name()))
					continue
				}
				mismatches = append(mismatches, mismatch{path: leaf.Path, value: leaf.Value, source: src.Name()})
			}
		}
	}
	return mismatches, nil
}

// assign converts raw and stores it in the option's cell.
func (r *resolver) assign(opt *Option, path string, raw any, src Source, ignore bool, assigned map[*cell]any) error {
	if opt.Secret && raw == secretMask {
		// Masked output read back in
		return nil
	}
	converted, err := opt.convert(raw)
	if err != nil {
		err = withSource(withPath(err, path), src.Name())
		if ignore {
			r.logger.Warn("skipping value rejected by converter",
				zap.String("path", path),
				zap.Any("value", raw),
				zap.String("source", src.Name()),
				zap.Error(err))
			return nil
		}
		return err
	}

	c := opt.state()
	if prev, seen := assigned[c]; seen && len(c.members) > 1 && !valuesEqual(prev, converted) {
		conflict := &Error{
			Kind:   ErrReferenceConflict,
			Path:   path,
			Value:  raw,
			Source: src.Name(),
			Err:    fmt.Errorf("aliased path already set to %v", prev),
		}
		if !ignore {
			return conflict
		}
		r.logger.Warn("aliased paths set to differing values", zap.Error(conflict))
	}
	assigned[c] = converted

	c.value = converted
	c.set = true
	c.origin = src.Name()
	return nil
}

// withSource records the source name on a resolution error.
func withSource(err error, source string) error {
	if e, ok := err.(*Error); ok && e.Source == "" {
		clone := *e
		clone.Source = source
		return &clone
	}
	return err
}

// mismatchError reports the first unknown key, counting the rest.
func mismatchError(mismatches []mismatch) error {
	first := mismatches[0]
	err := &Error{Kind: ErrNotAnOption, Path: first.path, Value: first.value, Source: first.source}
	if len(mismatches) > 1 {
		err.Err = fmt.Errorf("%d more unknown keys", len(mismatches)-1)
	}
	return err
}
