// FILE: lixenwraith/strata/file.go
package strata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Format names a file syntax understood by readers and writers.
type Format string

const (
	FormatConf   Format = "conf"
	FormatINI    Format = "ini"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
	FormatModule Format = "py"
	FormatEnv    Format = "env"
)

// fileReader parses raw file content into an ordered tree. Scalars keep the
// type the syntax gives them; path is used for diagnostics and includes.
type fileReader func(data []byte, path string) (*Values, error)

var fileReaders = map[Format]fileReader{
	FormatConf:   readConf,
	FormatINI:    readINI,
	FormatJSON:   readJSON,
	FormatYAML:   readYAML,
	FormatTOML:   readTOML,
	FormatModule: readModuleValues,
	FormatEnv:    readEnvFile,
}

// FormatOf determines the format from a file extension.
func FormatOf(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".conf", ".config", ".cfg", ".properties":
		return FormatConf
	case ".ini":
		return FormatINI
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml", ".tml":
		return FormatTOML
	case ".py":
		return FormatModule
	case ".env":
		return FormatEnv
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) Format {
	// JSON first (strict format)
	if json.Valid(data) {
		return FormatJSON
	}

	// YAML next, a scalar document is not a config
	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		if _, isMap := yamlTest.(map[string]any); isMap {
			return FormatYAML
		}
	}

	// INI last, it accepts almost anything so require a section or an assignment
	if f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data); err == nil {
		for _, s := range f.Sections() {
			if len(s.Keys()) > 0 {
				return FormatINI
			}
		}
	}

	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return FormatTOML
	}

	return ""
}

// readFile reads and parses path. An empty format is detected from the
// extension, then from content.
func readFile(path string, format Format) (*Values, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newError(ErrConfigFileMissing, "", path, err)
		}
		return nil, fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path '%s' is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if format == "" {
		format = FormatOf(path)
	}
	if format == "" {
		format = detectFormatFromContent(data)
	}

	read, ok := fileReaders[format]
	if !ok {
		return nil, newError(ErrUnknownFileExtension, "", path, fmt.Errorf("unable to determine config format for file '%s'", path))
	}

	values, err := read(data, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s config file '%s': %w", format, path, err)
	}
	return values, nil
}

// FileSource reads values from a configuration file on every pass.
type FileSource struct {
	Path   string
	Format Format // empty selects by extension, then content
	// Lenient makes a missing file an empty source and ignores mismatches.
	Lenient bool

	logger        *zap.Logger
	missingLogged bool
}

// NewFileSource creates a source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Name implements Source.
func (s *FileSource) Name() string {
	return "file:" + s.Path
}

// AlwaysIgnoreMismatches implements Source.
func (s *FileSource) AlwaysIgnoreMismatches() bool {
	if s.Lenient {
		return true
	}
	if s.format() == FormatModule {
		if m, err := loadModuleFile(s.Path); err == nil {
			return m.AlwaysIgnoreMismatches
		}
	}
	return false
}

func (s *FileSource) format() Format {
	if s.Format != "" {
		return s.Format
	}
	return FormatOf(s.Path)
}

// Values implements Source.
func (s *FileSource) Values(ns *Namespace, _ bool) (*Values, error) {
	raw, err := readFile(s.Path, s.Format)
	if err != nil {
		if !errors.Is(err, ErrConfigFileMissing) {
			return nil, err
		}
		// YAML files and lenient sources treat a missing file as empty
		if s.Lenient || s.format() == FormatYAML {
			if !s.missingLogged {
				s.missingLogged = true
				s.log().Warn("config file missing, using no values",
					zap.String("path", s.Path))
			}
			return NewValues(), nil
		}
		return nil, err
	}
	if s.format() == FormatEnv {
		return envValues(raw, ns), nil
	}
	return raw.normalize().collapseLiterals(), nil
}

func (s *FileSource) log() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

func (s *FileSource) setLogger(l *zap.Logger) {
	s.logger = l
}

// isJSONText reports whether a string definition source is a JSON object.
func isJSONText(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed))
}

// readDefinitionFile reads a definition file, trying JSON, YAML and INI in
// that order when the extension does not decide.
func readDefinitionFile(path string) (*Values, error) {
	if format := FormatOf(path); format != "" {
		return readFile(path, format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newError(ErrConfigFileMissing, "", path, err)
		}
		return nil, fmt.Errorf("failed to read definition file '%s': %w", path, err)
	}

	var errs []error
	for _, format := range []Format{FormatJSON, FormatYAML, FormatINI} {
		values, err := fileReaders[format](data, path)
		if err == nil && values.Len() > 0 {
			return values, nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", format, err))
		}
	}
	return nil, newError(ErrUnknownDefinitionType, "", path, errors.Join(errs...))
}

// trimBOM drops a UTF-8 byte order mark.
func trimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
}
