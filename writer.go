// FILE: lixenwraith/strata/writer.go
package strata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

// secretMask replaces secret values in written output.
const secretMask = "********"

// WriteOptions tunes serialization.
type WriteOptions struct {
	// ExposeSecrets writes secret options as their real value.
	ExposeSecrets bool
}

// WriterFunc serializes a definition tree with its current values.
type WriterFunc func(w io.Writer, ns *Namespace, opts WriteOptions) error

var writers = struct {
	sync.RWMutex
	byFormat map[Format]WriterFunc
}{byFormat: map[Format]WriterFunc{
	FormatConf:   writeConf,
	FormatINI:    writeINI,
	FormatJSON:   writeJSON,
	FormatYAML:   writeYAML,
	FormatTOML:   writeTOML,
	FormatModule: writeModule,
	FormatEnv:    writeEnv,
}}

// RegisterWriter adds or replaces the serializer for format.
func RegisterWriter(format Format, fn WriterFunc) {
	writers.Lock()
	defer writers.Unlock()
	writers.byFormat[format] = fn
}

// Formats returns the formats with a registered writer.
func Formats() []Format {
	writers.RLock()
	defer writers.RUnlock()
	out := make([]Format, 0, len(writers.byFormat))
	for _, f := range []Format{FormatConf, FormatINI, FormatJSON, FormatYAML, FormatTOML, FormatModule, FormatEnv} {
		if _, ok := writers.byFormat[f]; ok {
			out = append(out, f)
		}
	}
	for f := range writers.byFormat {
		if !containsFormat(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func containsFormat(list []Format, f Format) bool {
	for _, x := range list {
		if x == f {
			return true
		}
	}
	return false
}

// Write serializes ns to w in the given format.
func Write(w io.Writer, format Format, ns *Namespace, opts WriteOptions) error {
	writers.RLock()
	fn, ok := writers.byFormat[format]
	writers.RUnlock()
	if !ok {
		return newError(ErrUnknownFileExtension, "", string(format), nil)
	}
	return fn(w, ns, opts)
}

// WriteFile serializes ns to path atomically. An empty format is taken from
// the extension.
func WriteFile(path string, format Format, ns *Namespace, opts WriteOptions) error {
	if format == "" {
		format = FormatOf(path)
	}
	if format == "" {
		return newError(ErrUnknownFileExtension, "", filepath.Ext(path), fmt.Errorf("cannot infer format of %q", path))
	}

	var buf bytes.Buffer
	if err := Write(&buf, format, ns, opts); err != nil {
		return err
	}
	return atomicWriteFile(path, buf.Bytes())
}

// renderedLeaf is the text form of an option or aggregation.
type renderedLeaf struct {
	text  string
	quote bool // rendered by a converter accepting arbitrary expressions
	null  bool // no value
	kind  Kind
	doc   string
}

// renderLeaf converts a leaf value with its to-string converter, masking secrets.
func renderLeaf(entry any, opts WriteOptions) renderedLeaf {
	switch e := entry.(type) {
	case *Option:
		conv := e.Converter()
		r := renderedLeaf{kind: conv.Kind, doc: e.Doc}
		if e.Secret && !opts.ExposeSecrets {
			r.text = secretMask
			return r
		}
		v := e.Value()
		if v == nil {
			r.null = true
			return r
		}
		s, err := conv.ToString(v)
		if err != nil {
			// Identity fallback, quoted so that any content survives
			s = fmt.Sprint(v)
			r.quote = true
		} else {
			r.quote = conv.Quote
		}
		r.text = s
		return r
	case *Aggregation:
		r := renderedLeaf{kind: "aggregation", doc: e.Doc}
		if e.value == nil {
			r.null = true
			return r
		}
		s, err := cast.ToStringE(e.value)
		if err != nil {
			s = fmt.Sprint(e.value)
		}
		r.text = s
		return r
	}
	return renderedLeaf{null: true}
}

// commentBlock prefixes every line of text with "# ".
func commentBlock(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("# "+line, " ")
	}
	return strings.Join(lines, "\n")
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
