// FILE: lixenwraith/strata/option.go
package strata

import (
	"errors"
)

// Option is a single named, typed configuration cell.
type Option struct {
	Name    string // unique within its namespace, set on insertion
	Short   string // optional single-character command-line alias
	Doc     string
	Default any
	// Kind selects a registered converter. When empty the converter is
	// deduced from Default.
	Kind Kind
	// FromString and ToString override the converter selected by Kind.
	FromString FromStringFunc
	ToString   ToStringFunc
	Secret     bool
	// ReferenceValueFrom names a dotted path whose value this option shares.
	ReferenceValueFrom string

	cell *cell
}

// cell is the storage shared by every option of an alias set.
type cell struct {
	owner   *Option // canonical member, its default seeds the cell
	value   any
	set     bool   // assigned by a value source rather than defaulted
	origin  string // name of the last source that assigned the value
	members []*Option
}

// NewOption creates an option with the given default and doc string.
func NewOption(def any, doc string) *Option {
	return &Option{Default: def, Doc: doc}
}

func (o *Option) state() *cell {
	if o.cell == nil {
		o.cell = &cell{owner: o, value: o.Default, members: []*Option{o}}
	}
	return o.cell
}

// Value returns the current value.
func (o *Option) Value() any {
	return o.state().value
}

// IsSet reports whether a value source assigned the current value.
func (o *Option) IsSet() bool {
	return o.state().set
}

// Origin returns the name of the source that assigned the current value,
// or "default".
func (o *Option) Origin() string {
	c := o.state()
	if !c.set {
		return "default"
	}
	return c.origin
}

// Converter returns the converter in effect for the option.
func (o *Option) Converter() Converter {
	var c Converter
	switch {
	case o.Kind != "":
		if registered, ok := LookupConverter(o.Kind); ok {
			c = registered
		} else {
			c = identityConverter(nil)
			c.Kind = o.Kind
		}
	default:
		c = deduceConverter(o.Default)
	}

	if o.FromString != nil {
		c.FromString = o.FromString
	}
	if o.ToString != nil {
		c.ToString = o.ToString
	}
	return c
}

// SetValue assigns v. Strings are run through the from-string converter;
// other values are stored as they are.
func (o *Option) SetValue(v any) error {
	converted, err := o.convert(v)
	if err != nil {
		return err
	}
	c := o.state()
	c.value = converted
	c.set = true
	return nil
}

func (o *Option) convert(v any) (any, error) {
	s, isString := v.(string)
	if !isString {
		return v, nil
	}

	converted, err := o.Converter().FromString(s)
	if err != nil {
		if errors.Is(err, ErrNotApplicable) {
			return s, nil
		}
		return nil, newError(ErrCannotConvert, o.Name, v, err)
	}
	return converted, nil
}

// String renders the current value with the option's to-string converter.
func (o *Option) String() string {
	v := o.Value()
	if v == nil {
		return ""
	}
	s, err := o.Converter().ToString(v)
	if err != nil {
		return ""
	}
	return s
}

// Reset restores the default of the canonical member of the alias set.
func (o *Option) Reset() {
	c := o.state()
	c.value = c.owner.Default
	c.set = false
	c.origin = ""
}

// Equal compares name, default, doc, short form and current value.
func (o *Option) Equal(other *Option) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.Name == other.Name &&
		o.Short == other.Short &&
		o.Doc == other.Doc &&
		valuesEqual(o.Default, other.Default) &&
		valuesEqual(o.Value(), other.Value())
}

// Clone copies the definition and current value into an unaliased option.
func (o *Option) Clone() *Option {
	clone := *o
	clone.cell = nil
	c := clone.state()
	if o.cell != nil {
		c.value = o.cell.value
		c.set = o.cell.set
		c.origin = o.cell.origin
	}
	return &clone
}

// linkOptions joins the alias sets of o and target. The target's cell becomes
// canonical. Two sets that both carry differing assigned values conflict.
func linkOptions(path string, o, target *Option) error {
	from, to := o.state(), target.state()
	if from == to {
		return nil
	}

	if from.set && to.set && !valuesEqual(from.value, to.value) {
		return newError(ErrReferenceConflict, path, from.value,
			errors.New("aliased value differs from "+target.Name))
	}
	if from.set && !to.set {
		to.value = from.value
		to.set = true
		to.origin = from.origin
	}

	for _, member := range from.members {
		member.cell = to
		to.members = append(to.members, member)
	}
	return nil
}

// AggregateFunc computes a derived value. global is the whole resolved tree
// with acquisition enabled; local is the namespace holding the aggregation.
type AggregateFunc func(global, local *Values) (any, error)

// Aggregation is an option whose value is computed after resolution completes.
type Aggregation struct {
	Name string
	Doc  string
	Func AggregateFunc

	value any
}

// NewAggregation creates an aggregation computed by fn.
func NewAggregation(fn AggregateFunc, doc string) *Aggregation {
	return &Aggregation{Func: fn, Doc: doc}
}

// Value returns the computed value, nil before resolution.
func (a *Aggregation) Value() any {
	return a.value
}

// Clone copies the aggregation with its computed value.
func (a *Aggregation) Clone() *Aggregation {
	clone := *a
	return &clone
}
