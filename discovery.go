// FILE: lixenwraith/strata/discovery.go
package strata

import (
	"os"
	"path/filepath"
	"strings"
)

// SearchLocation names a group of directories searched for a config file.
type SearchLocation int

const (
	// SearchWorkingDir looks in the current directory.
	SearchWorkingDir SearchLocation = iota
	// SearchHomeHidden looks in $HOME/.<name>.
	SearchHomeHidden
	// SearchXDG looks in $XDG_CONFIG_HOME/<name> (or ~/.config/<name>) and
	// every $XDG_CONFIG_DIRS entry.
	SearchXDG
	// SearchEtc looks in /etc/<name>.
	SearchEtc
)

// discoveryFormats are tried in this order when FileDiscoveryOptions.Formats
// is empty.
var discoveryFormats = []Format{FormatINI, FormatConf, FormatJSON, FormatYAML, FormatTOML}

// formatExtensions lists the file extensions tried for each format.
var formatExtensions = map[Format][]string{
	FormatConf:   {".conf"},
	FormatINI:    {".ini"},
	FormatJSON:   {".json"},
	FormatYAML:   {".yaml", ".yml"},
	FormatTOML:   {".toml"},
	FormatModule: {".py"},
	FormatEnv:    {".env"},
}

// FileDiscoveryOptions configures automatic config file discovery
type FileDiscoveryOptions struct {
	// Base name of config file (without extension)
	Name string

	// Formats tried in each directory, in order. Empty means discoveryFormats.
	Formats []Format

	// Extensions overrides Formats with literal extensions such as ".cfg"
	Extensions []string

	// Paths are searched before any location
	Paths []string

	// Locations searched after Paths, in order
	Locations []SearchLocation

	// Environment variable holding an explicit path
	EnvVar string
}

// DefaultDiscoveryOptions searches the working directory, the XDG directories
// and /etc for <appName>.{ini,conf,json,yaml,yml,toml}. <APPNAME>_CONFIG names
// a file explicitly.
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:      appName,
		EnvVar:    envVarName(appName) + "_CONFIG",
		Locations: []SearchLocation{SearchWorkingDir, SearchXDG, SearchEtc},
	}
}

// envVarName upper-cases name and replaces characters a shell variable
// cannot hold.
func envVarName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}

// WithFileDiscovery searches for a config file and makes it the default of
// admin.conf. Any source setting admin.conf, such as --admin.conf on the
// command line, still takes precedence.
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	if path := DiscoverFile(opts); path != "" {
		b.r.conf = path
	}
	return b
}

// DiscoverFile returns the first config file found for opts, or "". The
// environment variable, when set, wins without checking the file exists so a
// wrong path surfaces as a missing-file error.
func DiscoverFile(opts FileDiscoveryOptions) string {
	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			return path
		}
	}

	extensions := opts.extensions()
	for _, dir := range opts.dirs() {
		for _, ext := range extensions {
			path := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path
			}
		}
	}
	return ""
}

func (o FileDiscoveryOptions) extensions() []string {
	if len(o.Extensions) > 0 {
		return o.Extensions
	}
	formats := o.Formats
	if len(formats) == 0 {
		formats = discoveryFormats
	}
	var out []string
	for _, f := range formats {
		out = append(out, formatExtensions[f]...)
	}
	return out
}

// dirs expands Paths and Locations into directories, dropping repeats.
func (o FileDiscoveryOptions) dirs() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(dirs ...string) {
		for _, dir := range dirs {
			if dir == "" || seen[dir] {
				continue
			}
			seen[dir] = true
			out = append(out, dir)
		}
	}

	add(o.Paths...)
	for _, loc := range o.Locations {
		switch loc {
		case SearchWorkingDir:
			if cwd, err := os.Getwd(); err == nil {
				add(cwd)
			}
		case SearchHomeHidden:
			if home, err := os.UserHomeDir(); err == nil {
				add(filepath.Join(home, "."+o.Name))
			}
		case SearchXDG:
			add(xdgConfigDirs(o.Name)...)
		case SearchEtc:
			add(filepath.Join("/etc", o.Name))
		}
	}
	return out
}

// xdgConfigDirs returns the user then system XDG config directories for name.
func xdgConfigDirs(name string) []string {
	var dirs []string
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, name))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", name))
	}

	system := os.Getenv("XDG_CONFIG_DIRS")
	if system == "" {
		system = "/etc/xdg"
	}
	for _, dir := range filepath.SplitList(system) {
		dirs = append(dirs, filepath.Join(dir, name))
	}
	return dirs
}
