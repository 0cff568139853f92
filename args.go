// FILE: lixenwraith/strata/args.go
package strata

import (
	"fmt"
	"strconv"
	"strings"
)

// ArgsSource serves command-line arguments. It accepts --a.b.c value,
// --a.b.c=value, registered short options and the bare --flag form for
// boolean options. Everything after a lone "--" is positional.
type ArgsSource struct {
	args       []string
	positional []string
}

// NewArgsSource creates a source over args, excluding the program name.
func NewArgsSource(args []string) *ArgsSource {
	return &ArgsSource{args: append([]string(nil), args...)}
}

// Name implements Source.
func (s *ArgsSource) Name() string {
	return "args"
}

// AlwaysIgnoreMismatches implements Source.
func (s *ArgsSource) AlwaysIgnoreMismatches() bool {
	return false
}

// Positional returns the non-option arguments found by the last pass.
func (s *ArgsSource) Positional() []string {
	return append([]string(nil), s.positional...)
}

// Values implements Source. Unknown options are kept for the overlay to
// report when mismatches matter and dropped otherwise.
func (s *ArgsSource) Values(ns *Namespace, ignore bool) (*Values, error) {
	if ns == nil {
		ns = NewNamespace("")
	}
	shorts := shortIndex(ns)

	result := NewValues()
	s.positional = s.positional[:0]

	i := 0
	for i < len(s.args) {
		arg := s.args[i]

		if arg == "--" {
			// Separator, the rest is positional
			s.positional = append(s.positional, s.args[i+1:]...)
			break
		}

		var keyPath, valueStr string
		var hasValue bool

		switch {
		case strings.HasPrefix(arg, "--"):
			keyPath, valueStr, hasValue = strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		case strings.HasPrefix(arg, "-") && len(arg) > 1 && !isNumber(arg):
			var short string
			short, valueStr, hasValue = strings.Cut(strings.TrimPrefix(arg, "-"), "=")
			path, known := shorts[short]
			if !known {
				i++
				if !hasValue {
					valueStr = "true"
					if i < len(s.args) && !isFlag(s.args[i]) {
						valueStr = s.args[i]
						i++
					}
				}
				if !ignore {
					result.put("-"+short, valueStr)
				}
				continue
			}
			keyPath = path
		default:
			s.positional = append(s.positional, arg)
			i++
			continue
		}
		i++

		if keyPath == "" {
			// Skip invalid flags like --=value
			continue
		}

		// Validate keyPath segments
		valid := true
		for _, segment := range splitPath(keyPath) {
			if !isValidKeySegment(segment) {
				valid = false
				break
			}
		}
		if !valid {
			if ignore {
				continue
			}
			return nil, newError(ErrNotAnOption, keyPath, arg,
				fmt.Errorf("invalid command-line key %q", keyPath))
		}

		entry, known := ns.Get(keyPath)
		opt, isOption := entry.(*Option)

		if !hasValue {
			switch {
			case isOption && opt.Converter().Kind == KindBool:
				// Presence form
				valueStr = "true"
			case isOption:
				if i < len(s.args) {
					valueStr = s.args[i]
					i++
				} else {
					valueStr = "true"
				}
			case i >= len(s.args) || isFlag(s.args[i]):
				// Unknown option without a value reads as a boolean flag
				valueStr = "true"
			default:
				valueStr = s.args[i]
				i++
			}
		}

		if !known && ignore {
			continue
		}
		result.Set(keyPath, valueStr)
	}

	return result, nil
}

// shortIndex maps single-character aliases to option paths.
func shortIndex(ns *Namespace) map[string]string {
	index := make(map[string]string)
	for _, e := range ns.Options() {
		if short := e.Entry.(*Option).Short; short != "" {
			index[short] = e.Path
		}
	}
	return index
}

func isFlag(arg string) bool {
	return strings.HasPrefix(arg, "-") && len(arg) > 1 && !isNumber(arg)
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
