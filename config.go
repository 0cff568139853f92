// FILE: lixenwraith/strata/config.go
package strata

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cast"
)

// Config is the resolved view handed to callers. It is built once at the end
// of a resolution and never changes afterwards.
type Config struct {
	root       *Namespace
	values     *Values
	positional []string
}

func newConfig(root *Namespace, sources []Source) *Config {
	c := &Config{root: root, values: root.Values()}
	for _, src := range sources {
		if args, ok := src.(*ArgsSource); ok {
			c.positional = append(c.positional, args.Positional()...)
		}
	}
	return c
}

// Get returns the value or subtree at path. Admin options are reachable
// under "admin".
func (c *Config) Get(path string) (any, bool) {
	v, ok := c.values.Get(path)
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Contains reports whether path names a value or subtree.
func (c *Config) Contains(path string) bool {
	return c.values.Contains(path)
}

// Values returns a deep copy of the resolved tree without the admin options.
func (c *Config) Values() *Values {
	return c.root.without(adminNamespace).Values()
}

// Namespace returns a copy of the definition tree, admin options excluded,
// with every option holding its resolved value.
func (c *Config) Namespace() *Namespace {
	return c.root.without(adminNamespace).Clone()
}

// Paths returns the dotted path of every resolved leaf, sorted.
func (c *Config) Paths() []string {
	var paths []string
	for _, leaf := range c.Values().Leaves() {
		paths = append(paths, leaf.Path)
	}
	sort.Strings(paths)
	return paths
}

// Origin returns the name of the source that set the value at path, or
// "default" when no source did.
func (c *Config) Origin(path string) (string, bool) {
	opt, ok := c.root.Option(path)
	if !ok {
		if agg, isAgg := c.root.Get(path); isAgg {
			if _, ok := agg.(*Aggregation); ok {
				return "aggregation", true
			}
		}
		return "", false
	}
	return opt.Origin(), true
}

// IsSet reports whether a value source assigned the option at path.
func (c *Config) IsSet(path string) bool {
	opt, ok := c.root.Option(path)
	return ok && opt.IsSet()
}

// Positional returns the command-line arguments that were not options.
func (c *Config) Positional() []string {
	return append([]string(nil), c.positional...)
}

// Strict reports the resolved admin.strict flag.
func (c *Config) Strict() bool {
	return cast.ToBool(c.admin("strict"))
}

func (c *Config) admin(name string) any {
	return optionValue(c.root, joinPath(adminNamespace, name))
}

func (c *Config) writeOptions() WriteOptions {
	return WriteOptions{ExposeSecrets: cast.ToBool(c.admin("expose_secrets"))}
}

// Write serializes the resolved configuration in format. Secrets are masked
// unless admin.expose_secrets is set.
func (c *Config) Write(w io.Writer, format Format) error {
	return Write(w, format, c.root.without(adminNamespace), c.writeOptions())
}

// Save writes the resolved configuration to path atomically, in the format
// implied by its extension.
func (c *Config) Save(path string) error {
	return WriteFile(path, "", c.root.without(adminNamespace), c.writeOptions())
}

// HandleAdmin performs the output actions requested through admin options.
// admin.dump_conf saves the configuration to a file; admin.print_conf writes
// it to w. The returned flag is true when the program is expected to exit
// after printing.
func (c *Config) HandleAdmin(w io.Writer) (bool, error) {
	if path := cast.ToString(c.admin("dump_conf")); path != "" {
		if err := c.Save(path); err != nil {
			return false, fmt.Errorf("failed to dump configuration: %w", err)
		}
	}
	if format := cast.ToString(c.admin("print_conf")); format != "" {
		if err := c.Write(w, Format(format)); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
