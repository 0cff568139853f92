// FILE: lixenwraith/strata/ini.go
package strata

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// topLevelSection is the INI section holding root-level options.
const topLevelSection = "top_level"

const includeDirective = "+include"

var iniLoadOptions = ini.LoadOptions{
	IgnoreInlineComment:     true,
	AllowBooleanKeys:        true,
	SkipUnrecognizableLines: false,
}

// readINI parses INI text. Sections become path prefixes; the DEFAULT and
// top_level sections are the root. +include lines are expanded in place.
func readINI(data []byte, path string) (*Values, error) {
	expanded, err := expandIncludes(trimBOM(data), path, make(map[string]bool))
	if err != nil {
		return nil, err
	}

	f, err := ini.LoadSources(iniLoadOptions, expanded)
	if err != nil {
		return nil, err
	}

	out := NewValues()
	for _, section := range f.Sections() {
		prefix := section.Name()
		if prefix == ini.DefaultSection || prefix == topLevelSection {
			prefix = ""
		}
		for _, key := range section.Keys() {
			out.put(joinPath(prefix, key.Name()), key.Value())
		}
	}
	return out, nil
}

// expandIncludes replaces every "+include PATH" line with the content of
// PATH, resolved against the directory of the including file.
func expandIncludes(data []byte, path string, seen map[string]bool) ([]byte, error) {
	if !bytes.Contains(data, []byte(includeDirective)) {
		return data, nil
	}

	dir := "."
	if path != "" {
		dir = filepath.Dir(path)
		if abs, err := filepath.Abs(path); err == nil {
			if seen[abs] {
				return nil, fmt.Errorf("include cycle at '%s'", path)
			}
			seen[abs] = true
			defer delete(seen, abs)
		}
	}

	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, includeDirective) {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}

		target := strings.TrimSpace(strings.TrimPrefix(trimmed, includeDirective))
		target = strings.Trim(target, `"'`)
		if target == "" {
			return nil, fmt.Errorf("empty %s directive in '%s'", includeDirective, path)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}

		included, err := os.ReadFile(target)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, newError(ErrConfigFileMissing, "", target, err)
			}
			return nil, fmt.Errorf("failed to read included file '%s': %w", target, err)
		}
		nested, err := expandIncludes(trimBOM(included), target, seen)
		if err != nil {
			return nil, err
		}
		out.Write(nested)
		if len(nested) > 0 && nested[len(nested)-1] != '\n' {
			out.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// writeINI emits root options under [top_level] and one section per namespace.
func writeINI(w io.Writer, ns *Namespace, opts WriteOptions) error {
	f := ini.Empty()

	for _, e := range ns.BreadthFirst(true) {
		sectionName, name := parentPath(e.Path)
		if sectionName == "" {
			sectionName = topLevelSection
		}

		if sub, isNamespace := e.Entry.(*Namespace); isNamespace {
			section, err := f.NewSection(e.Path)
			if err != nil {
				return err
			}
			if sub.Doc != "" {
				section.Comment = commentBlock(sub.Doc)
			}
			continue
		}

		section := f.Section(sectionName)
		if sectionName == topLevelSection && section.Comment == "" && ns.Doc != "" {
			section.Comment = commentBlock(ns.Doc)
		}

		r := renderLeaf(e.Entry, opts)
		if r.null {
			continue
		}
		key, err := section.NewKey(name, r.text)
		if err != nil {
			return fmt.Errorf("failed to write key %q: %w", e.Path, err)
		}
		comment := "converter: " + string(r.kind)
		if r.doc != "" {
			comment = "doc: " + r.doc + "\n" + comment
		}
		key.Comment = commentBlock(comment)
	}

	_, err := f.WriteTo(w)
	return err
}
