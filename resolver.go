// FILE: lixenwraith/strata/resolver.go
package strata

import (
	"fmt"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// DefaultMaxExpansions caps the overlay and expansion passes of one resolution.
const DefaultMaxExpansions = 16

// adminNamespace holds the options every resolver recognizes.
const adminNamespace = "admin"

// resolver drives one resolution: definitions are loaded, admin options
// bootstrapped, then overlay and expansion alternate until the tree stops
// growing.
type resolver struct {
	definitions   []any
	sources       []Source
	strict        bool
	exposeSecrets bool
	conf          string // default of admin.conf
	maxExpansions int
	logger        *zap.Logger

	expanded map[string]bool
}

// Resolve loads definitions, overlays the value sources in order and returns
// the resolved configuration. Sources are wrapped with WrapSource. Unknown
// keys are skipped unless a source sets admin.strict.
func Resolve(definitions []any, sources ...any) (*Config, error) {
	r := &resolver{definitions: definitions}
	for _, raw := range sources {
		src, err := WrapSource(raw)
		if err != nil {
			return nil, err
		}
		r.sources = append(r.sources, src)
	}
	return r.resolve()
}

func adminDefinitions(strict, exposeSecrets bool, conf string) *Namespace {
	ns := NewNamespace("administrative options")
	ns.Add("conf", conf, "config file to read before the command line")
	ns.Add("print_conf", "", "write the resolved configuration to standard output in this format")
	ns.Add("dump_conf", "", "write the resolved configuration to this file")
	ns.Add("strict", strict, "fail on keys that match no option")
	ns.Add("expose_secrets", exposeSecrets, "write secret options unmasked")
	app := ns.Add("application", nil, "reference to a class or module whose configuration seeds the tree")
	app.Kind = KindReference
	return ns
}

func (r *resolver) resolve() (*Config, error) {
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.maxExpansions <= 0 {
		r.maxExpansions = DefaultMaxExpansions
	}
	r.expanded = make(map[string]bool)

	root := NewNamespace("")
	if err := LoadDefinitions(root, r.definitions...); err != nil {
		return nil, err
	}
	installMissing(root.Namespace(adminNamespace), adminDefinitions(r.strict, r.exposeSecrets, r.conf))

	sources, err := r.bootstrap(root)
	if err != nil {
		return nil, err
	}

	admin := root.Namespace(adminNamespace)
	if app := optionValue(admin, "application"); app != nil {
		if required, ok := requiredConfigOf(app); ok {
			required.reset()
			added := installMissing(root, required)
			name, _ := NameOf(app)
			r.expanded[joinPath(adminNamespace, "application")+"="+name] = true
			r.logger.Debug("installed application config",
				zap.String("application", name),
				zap.Int("added", added))
		}
	}
	strict := cast.ToBool(optionValue(admin, "strict"))

	for pass := 1; ; pass++ {
		if pass > r.maxExpansions {
			return nil, newError(ErrExpansionDidNotConverge, "", nil,
				fmt.Errorf("still expanding after %d passes", r.maxExpansions))
		}

		if err := r.link(root); err != nil {
			return nil, err
		}
		root.reset()

		mismatches, err := r.overlay(root, sources, !strict)
		if err != nil {
			return nil, err
		}
		if r.expand(root) {
			continue
		}
		if len(mismatches) > 0 {
			return nil, mismatchError(mismatches)
		}
		r.logger.Debug("resolution converged", zap.Int("passes", pass))
		break
	}

	if err := r.aggregate(root); err != nil {
		return nil, err
	}
	return newConfig(root, sources), nil
}

// bootstrap resolves the admin options alone. A config file named by
// admin.conf joins the sources just before the command line, and the admin
// options are resolved again since the file may set more of them.
func (r *resolver) bootstrap(root *Namespace) ([]Source, error) {
	sources := append([]Source(nil), r.sources...)
	for _, src := range sources {
		if fs, ok := src.(*FileSource); ok && fs.logger == nil {
			fs.setLogger(r.logger)
		}
	}

	boot := NewNamespace("")
	boot.put(adminNamespace, root.Namespace(adminNamespace))
	quiet := *r
	quiet.logger = zap.NewNop()

	inserted := make(map[string]bool)
	for {
		boot.reset()
		if _, err := quiet.overlay(boot, sources, true); err != nil {
			return nil, err
		}

		conf := cast.ToString(optionValue(root.Namespace(adminNamespace), "conf"))
		if conf == "" || inserted[conf] {
			return sources, nil
		}
		inserted[conf] = true
		r.logger.Debug("reading config file named by admin.conf", zap.String("path", conf))
		sources = insertBeforeArgs(sources, &FileSource{Path: conf, logger: r.logger})
	}
}

// insertBeforeArgs places src just before the first command-line source.
func insertBeforeArgs(sources []Source, src Source) []Source {
	for i, s := range sources {
		if _, isArgs := s.(*ArgsSource); isArgs {
			out := make([]Source, 0, len(sources)+1)
			out = append(out, sources[:i]...)
			out = append(out, src)
			return append(out, sources[i:]...)
		}
	}
	return append(sources, src)
}

// aggregate computes every aggregation in tree order, so later aggregations
// see the results of earlier ones.
func (r *resolver) aggregate(root *Namespace) error {
	for _, e := range root.Walk() {
		agg, ok := e.Entry.(*Aggregation)
		if !ok || agg.Func == nil {
			continue
		}

		local := root.Values()
		if parent, _ := parentPath(e.Path); parent != "" {
			if ns, ok := root.Get(parent); ok {
				local = ns.(*Namespace).Values()
			}
		}

		v, err := agg.Func(root.Values().Acquiring(), local)
		if err != nil {
			return fmt.Errorf("aggregation %q failed: %w", e.Path, err)
		}
		agg.value = v
	}
	return nil
}

func optionValue(ns *Namespace, path string) any {
	opt, ok := ns.Option(path)
	if !ok {
		return nil
	}
	return opt.Value()
}
