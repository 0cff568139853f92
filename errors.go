// FILE: lixenwraith/strata/errors.go
package strata

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported by the resolver. All of them are recoverable inside
// adapters and terminal at the boundary.
var (
	// ErrNotAnOption is returned when a strict value source names a path with no definition
	ErrNotAnOption = errors.New("not an option")
	// ErrCannotConvert is returned when a from-string converter rejects a value
	ErrCannotConvert = errors.New("cannot convert")
	// ErrUnknownDefinitionType is returned when no definition handler accepts a source
	ErrUnknownDefinitionType = errors.New("unknown definition type")
	// ErrUnknownFileExtension is returned when no writer is registered for a format
	ErrUnknownFileExtension = errors.New("unknown file extension")
	// ErrNoHandlerForType is returned when no value source adapter accepts a source kind
	ErrNoHandlerForType = errors.New("no handler for type")
	// ErrCantHandleType is returned by an adapter asked to wrap a source it does not accept
	ErrCantHandleType = errors.New("can't handle type")
	// ErrAllHandlersFailed is returned when every matching adapter failed to wrap a source
	ErrAllHandlersFailed = errors.New("all handlers failed")
	// ErrConfigFileMissing is returned when a required configuration file does not exist
	ErrConfigFileMissing = errors.New("config file missing")
	// ErrExpansionDidNotConverge is returned when expansion exceeds its pass limit
	ErrExpansionDidNotConverge = errors.New("expansion did not converge")
	// ErrReferenceConflict is returned when aliased paths carry differing explicit values
	ErrReferenceConflict = errors.New("reference conflict")
	// ErrUnknownReference is returned when a dotted reference cannot be resolved
	ErrUnknownReference = errors.New("unknown reference")
	// ErrNotApplicable is returned by a converter that does not apply to its input.
	// The raw string is then stored unchanged.
	ErrNotApplicable = errors.New("converter not applicable")
)

// Error carries the offending path and raw value of a resolution failure.
type Error struct {
	Kind   error  // one of the Err* sentinels
	Path   string // dotted path, empty when not path specific
	Value  any    // raw value that triggered the failure
	Source string // value source name, if any
	Err    error  // underlying cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " at %q", e.Path)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, " (value %q)", fmt.Sprint(e.Value))
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " from %s", e.Source)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, path string, value any, cause error) *Error {
	return &Error{Kind: kind, Path: path, Value: value, Err: cause}
}

// usageErrors are the failures caused by definitions or values rather than by the program.
var usageErrors = []error{
	ErrNotAnOption,
	ErrCannotConvert,
	ErrUnknownDefinitionType,
	ErrUnknownFileExtension,
	ErrNoHandlerForType,
	ErrCantHandleType,
	ErrAllHandlersFailed,
	ErrConfigFileMissing,
	ErrExpansionDidNotConverge,
	ErrReferenceConflict,
	ErrUnknownReference,
}

// IsUsageError reports whether err stems from bad definitions or values.
// Command-line front ends exit with status 2 for these and 1 otherwise.
func IsUsageError(err error) bool {
	for _, kind := range usageErrors {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
