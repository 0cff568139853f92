// FILE: lixenwraith/strata/env.go
package strata

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readEnvFile parses KEY=value lines as written by the env writer or a
// dotenv file. An "export " prefix and surrounding quotes are dropped.
func readEnvFile(data []byte, _ string) (*Values, error) {
	out := NewValues()
	scanner := bufio.NewScanner(bytes.NewReader(trimBOM(data)))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: expected KEY=value, got %q", lineNo, line)
		}
		value, err := unquoteShell(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out.put(strings.TrimSpace(key), value)
	}
	return out, scanner.Err()
}

func unquoteShell(s string) (string, error) {
	if len(s) < 2 {
		return s, nil
	}
	switch {
	case strings.HasPrefix(s, "$'") && s[len(s)-1] == '\'' && len(s) >= 3:
		return unescapeANSIC(s[2 : len(s)-1])
	case s[0] == '\'' && s[len(s)-1] == '\'':
		return strings.ReplaceAll(s[1:len(s)-1], `'\''`, `'`), nil
	case s[0] == '"' && s[len(s)-1] == '"':
		return strconv.Unquote(s)
	}
	return s, nil
}

// quoteShell single-quotes s for a POSIX shell. Values with control characters
// use $'..' quoting so each stays on one line.
func quoteShell(s string) string {
	if strings.ContainsAny(s, "\n\r\t\v\f") {
		return "$'" + ansiCEscaper.Replace(s) + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var ansiCEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\v", `\v`,
	"\f", `\f`,
)

// unescapeANSIC decodes the body of a $'..' string.
func unescapeANSIC(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i == len(s) {
			return "", fmt.Errorf("trailing backslash in %q", s)
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case 'f':
			b.WriteByte('\f')
		case '\\', '\'', '"':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

// envKey renders a dotted path as an environment variable name.
func envKey(path string) string {
	return strings.ReplaceAll(path, ".", "__")
}

// writeEnv emits one KEY='value' line per leaf with dots written as "__".
func writeEnv(w io.Writer, ns *Namespace, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	for _, e := range ns.BreadthFirst(false) {
		r := renderLeaf(e.Entry, opts)
		if r.null {
			continue
		}
		fmt.Fprintf(bw, "%s=%s\n", envKey(e.Path), quoteShell(r.text))
	}
	return bw.Flush()
}
