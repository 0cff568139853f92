// FILE: lixenwraith/strata/module_file.go
package strata

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Module files are a restricted assignment language:
//
//	"""module doc"""
//	ignore_symbol_list = ["scratch"]
//	always_ignore_mismatches = True
//	port = 8080
//	storage = "backends.Postgres"
//
//	class database:
//	    """connection settings"""
//	    host = "localhost"
//
// Classes become namespaces; literals are strings, numbers, True, False,
// None, lists and bare dotted names, which read as strings.

const (
	ignoreSymbolListName       = "ignore_symbol_list"
	alwaysIgnoreMismatchesName = "always_ignore_mismatches"
	moduleDocName              = "__doc__"
)

// sourceLine is a logical line with its indentation.
type sourceLine struct {
	no     int
	indent int
	text   string
}

// loadModuleFile parses the module file at path.
func loadModuleFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newError(ErrConfigFileMissing, "", path, err)
		}
		return nil, fmt.Errorf("failed to read module file '%s': %w", path, err)
	}
	return parseModule(data, moduleNameOf(path))
}

func moduleNameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readModuleValues serves module files as value sources.
func readModuleValues(data []byte, path string) (*Values, error) {
	m, err := parseModule(data, moduleNameOf(path))
	if err != nil {
		return nil, err
	}
	return moduleValues(m), nil
}

// parseModule builds a module from module file text.
func parseModule(data []byte, name string) (*Module, error) {
	lines, err := logicalLines(trimBOM(data))
	if err != nil {
		return nil, err
	}

	m := NewModule(name)
	for i := 0; i < len(lines); {
		line := lines[i]
		if line.indent > 0 {
			return nil, fmt.Errorf("line %d: unexpected indentation", line.no)
		}

		if className, ok := classHeader(line.text); ok {
			body, next := blockBody(lines, i+1, line.indent)
			class, err := parseClass(body, joinPath(name, className))
			if err != nil {
				return nil, err
			}
			m.Define(className, class)
			i = next
			continue
		}
		i++

		if isImport(line.text) {
			continue
		}

		if doc, ok := docstring(line.text); ok {
			if m.Doc == "" {
				m.Doc = doc
			}
			continue
		}

		target, value, err := assignment(line)
		if err != nil {
			return nil, err
		}
		switch target {
		case moduleDocName:
			m.Doc = fmt.Sprint(value)
		case ignoreSymbolListName:
			list, _ := value.([]any)
			for _, item := range list {
				m.IgnoreSymbols = append(m.IgnoreSymbols, fmt.Sprint(item))
			}
		case alwaysIgnoreMismatchesName:
			flag, _ := value.(bool)
			m.AlwaysIgnoreMismatches = flag
		default:
			if err := defineModuleSymbol(m, target, value); err != nil {
				return nil, fmt.Errorf("line %d: %w", line.no, err)
			}
		}
	}
	return m, nil
}

// defineModuleSymbol handles plain and dotted assignment targets. A dotted
// target builds a namespace symbol.
func defineModuleSymbol(m *Module, target string, value any) error {
	head, rest, dotted := strings.Cut(target, ".")
	if !dotted {
		m.Define(target, value)
		return nil
	}

	existing, _ := m.Lookup(head)
	ns, isNamespace := existing.(*Namespace)
	if !isNamespace {
		if existing != nil {
			return fmt.Errorf("%q is already defined as a value", head)
		}
		ns = NewNamespace("")
		m.Define(head, ns)
	}
	return ns.Set(rest, value)
}

// parseClass turns a class body into a class whose required configuration
// holds the body's assignments.
func parseClass(body []sourceLine, qualified string) (*Class, error) {
	ns, doc, err := parseClassBody(body, qualified)
	if err != nil {
		return nil, err
	}
	ns.Doc = doc
	return &Class{Name: qualified, Doc: doc, Config: ns}, nil
}

func parseClassBody(body []sourceLine, qualified string) (*Namespace, string, error) {
	ns := NewNamespace("")
	var doc string
	if len(body) == 0 {
		return ns, doc, nil
	}

	indent := body[0].indent
	for i := 0; i < len(body); {
		line := body[i]
		if line.indent != indent {
			return nil, "", fmt.Errorf("line %d: inconsistent indentation", line.no)
		}

		if className, ok := classHeader(line.text); ok {
			nested, next := blockBody(body, i+1, indent)
			sub, subDoc, err := parseClassBody(nested, joinPath(qualified, className))
			if err != nil {
				return nil, "", err
			}
			sub.Doc = subDoc
			if err := ns.Set(className, sub); err != nil {
				return nil, "", err
			}
			i = next
			continue
		}
		i++

		if text, ok := docstring(line.text); ok {
			if doc == "" {
				doc = text
			}
			continue
		}
		if line.text == "pass" {
			continue
		}

		target, value, err := assignment(line)
		if err != nil {
			return nil, "", err
		}
		if target == moduleDocName {
			doc = fmt.Sprint(value)
			continue
		}
		if err := ns.Set(target, value); err != nil {
			return nil, "", fmt.Errorf("line %d: %w", line.no, err)
		}
	}
	return ns, doc, nil
}

// blockBody returns the lines indented deeper than indent starting at start,
// and the index of the first line after them.
func blockBody(lines []sourceLine, start, indent int) ([]sourceLine, int) {
	end := start
	for end < len(lines) && lines[end].indent > indent {
		end++
	}
	return lines[start:end], end
}

func classHeader(text string) (string, bool) {
	if !strings.HasPrefix(text, "class ") || !strings.HasSuffix(text, ":") {
		return "", false
	}
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, "class "), ":"))
	if idx := strings.IndexByte(name, '('); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name, isValidKeySegment(name)
}

func isImport(text string) bool {
	return strings.HasPrefix(text, "import ") || strings.HasPrefix(text, "from ")
}

func docstring(text string) (string, bool) {
	v, rest, err := parseLiteral(text)
	if err != nil || rest != "" {
		return "", false
	}
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(text, `"`) && !strings.HasPrefix(text, `'`) {
		return "", false
	}
	return s, true
}

func assignment(line sourceLine) (string, any, error) {
	target, expr, found := strings.Cut(line.text, "=")
	if !found {
		return "", nil, fmt.Errorf("line %d: expected assignment, got %q", line.no, line.text)
	}
	target = strings.TrimSpace(target)
	for _, segment := range splitPath(target) {
		if !isValidKeySegment(segment) {
			return "", nil, fmt.Errorf("line %d: invalid name %q", line.no, target)
		}
	}

	value, rest, err := parseLiteral(strings.TrimSpace(expr))
	if err != nil {
		return "", nil, fmt.Errorf("line %d: %w", line.no, err)
	}
	if rest != "" && !strings.HasPrefix(rest, "#") {
		return "", nil, fmt.Errorf("line %d: unexpected %q after value", line.no, rest)
	}
	return target, value, nil
}

// parseLiteral reads one literal from the front of s and returns the trimmed rest.
func parseLiteral(s string) (any, string, error) {
	if s == "" {
		return nil, "", errors.New("missing value")
	}

	for _, q := range tripleQuotes {
		if strings.HasPrefix(s, q) {
			end := strings.Index(s[len(q):], q)
			if end < 0 {
				return nil, "", errors.New("unterminated triple-quoted string")
			}
			return s[len(q) : len(q)+end], strings.TrimSpace(s[2*len(q)+end:]), nil
		}
	}

	switch s[0] {
	case '"', '\'':
		return parseQuoted(s)
	case '[', '(':
		return parseList(s)
	}

	// Bare token up to a separator
	end := strings.IndexAny(s, ",])#")
	if end < 0 {
		end = len(s)
	}
	token := strings.TrimSpace(s[:end])
	rest := strings.TrimSpace(s[end:])

	switch token {
	case "True":
		return true, rest, nil
	case "False":
		return false, rest, nil
	case "None":
		return nil, rest, nil
	}
	if n, err := strconv.ParseInt(token, 0, 64); err == nil {
		return int(n), rest, nil
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, rest, nil
	}
	for _, segment := range splitPath(token) {
		if !isValidKeySegment(segment) {
			return nil, "", fmt.Errorf("invalid literal %q", token)
		}
	}
	return token, rest, nil
}

func parseQuoted(s string) (any, string, error) {
	quote := s[0]
	escaped := false
	for i := 1; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == quote:
			body := s[1:i]
			rest := strings.TrimSpace(s[i+1:])
			if quote == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			unquoted, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return nil, "", fmt.Errorf("invalid string literal %s: %w", s[:i+1], err)
			}
			return unquoted, rest, nil
		}
	}
	return nil, "", errors.New("unterminated string")
}

func parseList(s string) (any, string, error) {
	closing := byte(']')
	if s[0] == '(' {
		closing = ')'
	}
	list := []any{}
	rest := strings.TrimSpace(s[1:])
	for {
		if rest == "" {
			return nil, "", errors.New("unterminated list")
		}
		if rest[0] == closing {
			return list, strings.TrimSpace(rest[1:]), nil
		}
		item, after, err := parseLiteral(rest)
		if err != nil {
			return nil, "", err
		}
		list = append(list, item)
		rest = after
		if strings.HasPrefix(rest, ",") {
			rest = strings.TrimSpace(rest[1:])
		}
	}
}

// logicalLines drops blank and comment lines and joins triple-quoted strings
// spanning several physical lines.
func logicalLines(data []byte) ([]sourceLine, error) {
	var out []sourceLine
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pending *sourceLine
	var delimiter string
	no := 0
	for scanner.Scan() {
		no++
		raw := scanner.Text()

		if pending != nil {
			pending.text += "\n" + raw
			if strings.Contains(raw, delimiter) {
				out = append(out, *pending)
				pending = nil
			}
			continue
		}

		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lead := raw[:len(raw)-len(strings.TrimLeft(raw, " \t"))]
		line := sourceLine{no: no, indent: len(strings.ReplaceAll(lead, "\t", "    ")), text: text}

		if q := openTripleQuote(text); q != "" {
			line.text = strings.TrimLeft(raw, " \t")
			pending, delimiter = &line, q
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, fmt.Errorf("line %d: unterminated triple-quoted string", pending.no)
	}
	return out, nil
}

// openTripleQuote returns the delimiter of a triple-quoted string left open at
// the end of text. Ordinary string literals and trailing comments are skipped.
func openTripleQuote(text string) string {
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '#':
			return ""
		case '\'', '"':
			if q := text[i:min(i+3, len(text))]; q == `'''` || q == `"""` {
				end := strings.Index(text[i+3:], q)
				if end < 0 {
					return q
				}
				i += end + 5
				continue
			}
			for i++; i < len(text) && text[i] != c; i++ {
				if text[i] == '\\' {
					i++
				}
			}
		}
	}
	return ""
}

// moduleString renders text as a string literal. Quoting kinds get a raw
// triple-quoted literal when a delimiter fits.
func moduleString(text string, raw bool) string {
	if raw {
		for _, q := range tripleQuotes {
			if !strings.Contains(text, q) && !strings.HasSuffix(text, q[:1]) {
				return q + text + q
			}
		}
	}
	return strconv.Quote(text)
}

// writeModule emits root options as assignments and namespaces as class blocks.
func writeModule(w io.Writer, ns *Namespace, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	if ns.Doc != "" {
		fmt.Fprintf(bw, "%s = %s\n\n", moduleDocName, strconv.Quote(ns.Doc))
	}
	writeModuleBody(bw, "", ns, 0, opts)
	return bw.Flush()
}

func writeModuleBody(w *bufio.Writer, prefix string, ns *Namespace, depth int, opts WriteOptions) {
	indent := strings.Repeat("    ", depth)

	for _, key := range ns.keys {
		entry := ns.entries[key]
		if _, isNamespace := entry.(*Namespace); isNamespace {
			continue
		}
		r := renderLeaf(entry, opts)
		fmt.Fprintf(w, "%s# name: %s\n", indent, joinPath(prefix, key))
		if r.doc != "" {
			for _, line := range strings.Split(r.doc, "\n") {
				fmt.Fprintf(w, "%s# doc: %s\n", indent, line)
			}
		}
		fmt.Fprintf(w, "%s# converter: %s\n", indent, r.kind)

		switch {
		case r.null:
			fmt.Fprintf(w, "%s%s = None\n\n", indent, key)
		default:
			fmt.Fprintf(w, "%s%s = %s\n\n", indent, key, moduleString(r.text, r.quote))
		}
	}

	for _, key := range ns.keys {
		sub, isNamespace := ns.entries[key].(*Namespace)
		if !isNamespace {
			continue
		}
		fmt.Fprintf(w, "%sclass %s:\n", indent, key)
		inner := strings.Repeat("    ", depth+1)
		if sub.Doc != "" {
			fmt.Fprintf(w, "%s%s = %s\n", inner, moduleDocName, strconv.Quote(sub.Doc))
		}
		if sub.Len() == 0 && sub.Doc == "" {
			fmt.Fprintf(w, "%spass\n", inner)
		}
		fmt.Fprintln(w)
		writeModuleBody(w, joinPath(prefix, key), sub, depth+1, opts)
	}
}
