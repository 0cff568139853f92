// FILE: lixenwraith/strata/convenience.go
package strata

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Quick resolves definitions against the environment and the given
// command-line arguments, the arguments taking precedence.
// This is the recommended way to initialize configuration for most applications
func Quick(definitions any, args []string) (*Config, error) {
	return NewBuilder().
		WithDefinitions(definitions).
		WithEnv().
		WithArgs(args).
		Build()
}

// MustQuick is like Quick but panics on error
func MustQuick(definitions any, args []string) *Config {
	cfg, err := Quick(definitions, args)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return cfg
}

// WriteUsage lists every option of ns with its short form, long form,
// default and doc string. Secret defaults are masked.
func WriteUsage(w io.Writer, ns *Namespace) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPTION\tDEFAULT\tDESCRIPTION")
	for _, e := range ns.Options() {
		opt := e.Entry.(*Option)

		flag := "    --" + e.Path
		if opt.Short != "" {
			flag = "-" + opt.Short + ", --" + e.Path
		}

		def := ""
		switch {
		case opt.Secret:
			def = secretMask
		case opt.Default != nil:
			if s, err := opt.Converter().ToString(opt.Default); err == nil {
				def = s
			}
		}
		if strings.ContainsAny(def, "\n\t") {
			def = fmt.Sprintf("%q", def)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", flag, def, opt.Doc)
	}
	return tw.Flush()
}

// Usage writes the option listing of the resolved tree, admin options included.
func (c *Config) Usage(w io.Writer) error {
	return WriteUsage(w, c.root)
}

// Usage writes the option listing of the builder's definitions without
// resolving any values. Options contributed by expansion are not listed.
func (b *Builder) Usage(w io.Writer) error {
	root := NewNamespace("")
	if err := LoadDefinitions(root, b.r.definitions...); err != nil {
		return err
	}
	installMissing(root.Namespace(adminNamespace), adminDefinitions(b.r.strict, b.r.exposeSecrets, b.r.conf))
	return WriteUsage(w, root)
}

// Debug returns a formatted string showing all configuration values and their sources
func (c *Config) Debug() string {
	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")

	for _, e := range c.root.Walk() {
		b.WriteString(fmt.Sprintf("  %s:\n", e.Path))
		switch entry := e.Entry.(type) {
		case *Option:
			value := entry.String()
			if entry.Secret {
				value = secretMask
			}
			b.WriteString(fmt.Sprintf("    Current: %s\n", value))
			b.WriteString(fmt.Sprintf("    Origin: %s\n", entry.Origin()))
		case *Aggregation:
			b.WriteString(fmt.Sprintf("    Current: %v\n", entry.Value()))
			b.WriteString("    Origin: aggregation\n")
		}
	}

	return b.String()
}

// Dump writes the current configuration to stdout in the given format
func (c *Config) Dump(format Format) error {
	return c.Write(os.Stdout, format)
}
