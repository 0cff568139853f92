// FILE: lixenwraith/strata/builder.go
package strata

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ValidatorFunc defines the signature for a function that can validate a Config instance.
// It receives the fully resolved *Config object and should return an error if validation fails.
type ValidatorFunc func(c *Config) error

// Builder provides a fluent interface for building configurations
type Builder struct {
	r          resolver
	err        error
	validators []ValidatorFunc
}

// NewBuilder creates a new configuration builder. Without further sources
// it resolves definitions to their defaults.
func NewBuilder() *Builder {
	return &Builder{
		r: resolver{
			maxExpansions: DefaultMaxExpansions,
			logger:        zap.NewNop(),
		},
		validators: make([]ValidatorFunc, 0),
	}
}

// WithDefinitions appends definition sources: namespaces, modules, classes,
// mappings, JSON text or file paths, and structs with defaults.
func (b *Builder) WithDefinitions(definitions ...any) *Builder {
	b.r.definitions = append(b.r.definitions, definitions...)
	return b
}

// WithSources appends value sources in precedence order, later sources
// overriding earlier ones. Raw sources are wrapped with WrapSource.
func (b *Builder) WithSources(sources ...any) *Builder {
	for _, raw := range sources {
		src, err := WrapSource(raw)
		if err != nil {
			b.setErr(err)
			continue
		}
		b.r.sources = append(b.r.sources, src)
	}
	return b
}

// WithEnv appends the process environment as a value source
func (b *Builder) WithEnv() *Builder {
	b.r.sources = append(b.r.sources, NewEnvSource(nil))
	return b
}

// WithArgs appends command-line arguments as a value source
func (b *Builder) WithArgs(args []string) *Builder {
	b.r.sources = append(b.r.sources, NewArgsSource(args))
	return b
}

// WithOSArgs appends os.Args[1:] as a value source
func (b *Builder) WithOSArgs() *Builder {
	return b.WithArgs(os.Args[1:])
}

// WithFile appends a configuration file that must exist
func (b *Builder) WithFile(path string) *Builder {
	b.r.sources = append(b.r.sources, NewFileSource(path))
	return b
}

// WithOptionalFile appends a configuration file that may be missing.
// Keys matching no option are skipped.
func (b *Builder) WithOptionalFile(path string) *Builder {
	b.r.sources = append(b.r.sources, &FileSource{Path: path, Lenient: true})
	return b
}

// WithStrict makes keys matching no option fatal. Sources may still
// override this through admin.strict.
func (b *Builder) WithStrict(strict bool) *Builder {
	b.r.strict = strict
	return b
}

// WithExposeSecrets writes secret options unmasked by default
func (b *Builder) WithExposeSecrets(expose bool) *Builder {
	b.r.exposeSecrets = expose
	return b
}

// WithMaxExpansions caps the number of overlay and expansion passes
func (b *Builder) WithMaxExpansions(n int) *Builder {
	if n <= 0 {
		b.setErr(fmt.Errorf("max expansions must be positive, got %d", n))
		return b
	}
	b.r.maxExpansions = n
	return b
}

// WithLogger sets the logger receiving resolution warnings and debug traces
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	if logger != nil {
		b.r.logger = logger
	}
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
		return
	}
	b.err = errors.Join(b.err, err)
}

// Build resolves the configuration with all specified options
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}

	for _, src := range b.r.sources {
		if fs, ok := src.(*FileSource); ok {
			fs.setLogger(b.r.logger)
		}
	}

	r := b.r
	cfg, err := r.resolve()
	if err != nil {
		return nil, err
	}

	// Run validators
	for _, validator := range b.validators {
		if err := validator(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return cfg, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Config {
	cfg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return cfg
}

// BuildAndScan builds and decodes the subtree at basePath into the provided
// target struct pointer, validating its `validate` tags.
func (b *Builder) BuildAndScan(basePath string, target any) (*Config, error) {
	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}

	if err := cfg.ScanValid(basePath, target); err != nil {
		return nil, fmt.Errorf("failed to scan final config into target: %w", err)
	}

	return cfg, nil
}
