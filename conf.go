// FILE: lixenwraith/strata/conf.go
package strata

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// confIndent prefixes continuation lines of multi-line values.
const confIndent = "    "

// tripleQuotes are the delimiters around values written by quoting converters.
var tripleQuotes = []string{`'''`, `"""`}

// readConf parses flat key=value text. Lines starting with # are comments and
// a line with leading whitespace continues the previous value. Inside an open
// triple-quoted value every line is content, minus the writer's indent.
func readConf(data []byte, _ string) (*Values, error) {
	out := NewValues()
	scanner := bufio.NewScanner(bytes.NewReader(trimBOM(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lastKey string
	var lastValue strings.Builder
	flush := func() {
		if lastKey != "" {
			out.put(lastKey, stripTripleQuotes(lastValue.String()))
		}
		lastKey = ""
		lastValue.Reset()
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if lastKey != "" && openTripleQuoted(lastValue.String()) {
			lastValue.WriteString("\n")
			lastValue.WriteString(strings.TrimPrefix(line, confIndent))
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Continuation of the previous value
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey == "" {
				return nil, fmt.Errorf("line %d: continuation without a preceding key", lineNo)
			}
			lastValue.WriteString("\n")
			lastValue.WriteString(trimmed)
			continue
		}

		flush()
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: expected key=value, got %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNo)
		}
		lastKey = key
		value = strings.TrimLeft(value, " \t")
		if !openTripleQuoted(value) {
			value = strings.TrimRight(value, " \t")
		}
		lastValue.WriteString(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if lastKey != "" && openTripleQuoted(lastValue.String()) {
		return nil, fmt.Errorf("value of %q: unterminated triple-quoted string", lastKey)
	}
	flush()
	return out, nil
}

// openTripleQuoted reports whether s starts a triple-quoted value that has not
// been closed yet.
func openTripleQuoted(s string) bool {
	for _, q := range tripleQuotes {
		if strings.HasPrefix(s, q) {
			return len(s) < 2*len(q) || !strings.HasSuffix(s, q)
		}
	}
	return false
}

func stripTripleQuotes(s string) string {
	for _, q := range tripleQuotes {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// tripleQuote wraps s in the first delimiter it does not contain, or else in
// one that ends none of its inner lines.
func tripleQuote(s string) string {
	for _, q := range tripleQuotes {
		if !strings.Contains(s, q) {
			return q + s + q
		}
	}
	lines := strings.Split(s, "\n")
	for _, q := range tripleQuotes {
		fits := true
		for _, line := range lines[:len(lines)-1] {
			if strings.HasSuffix(line, q) {
				fits = false
				break
			}
		}
		if fits {
			return q + s + q
		}
	}
	return s
}

// writeConf emits one name/doc/converter comment block per leaf, followed by
// its dotted key=value line.
func writeConf(w io.Writer, ns *Namespace, opts WriteOptions) error {
	bw := bufio.NewWriter(w)

	if ns.Doc != "" {
		fmt.Fprintln(bw, commentBlock(ns.Doc))
		fmt.Fprintln(bw)
	}

	for _, e := range ns.BreadthFirst(true) {
		if sub, isNamespace := e.Entry.(*Namespace); isNamespace {
			if sub.Doc != "" {
				fmt.Fprintln(bw, commentBlock(e.Path+": "+sub.Doc))
				fmt.Fprintln(bw)
			}
			continue
		}

		r := renderLeaf(e.Entry, opts)
		fmt.Fprintln(bw, commentBlock("name: "+e.Path))
		if r.doc != "" {
			fmt.Fprintln(bw, commentBlock("doc: "+r.doc))
		}
		fmt.Fprintln(bw, commentBlock("converter: "+string(r.kind)))

		if r.null {
			fmt.Fprintf(bw, "#%s=\n\n", e.Path)
			continue
		}
		fmt.Fprintf(bw, "%s=%s\n\n", e.Path, confValue(r))
	}
	return bw.Flush()
}

// confValue quotes values that would not survive a plain read and indents
// continuation lines.
func confValue(r renderedLeaf) string {
	s := r.text
	if r.quote || strings.TrimSpace(s) != s || strings.Contains(s, "\n") || openTripleQuoted(s) || stripTripleQuotes(s) != s {
		s = tripleQuote(s)
	}
	return strings.ReplaceAll(s, "\n", "\n"+confIndent)
}
