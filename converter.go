// FILE: lixenwraith/strata/converter.go
package strata

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
)

// Kind names the target type of a string conversion.
type Kind string

// Built-in kinds. Their names double as the built-in single-identifier references.
const (
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
	KindString    Kind = "string"
	KindBool      Kind = "bool"
	KindTimestamp Kind = "timestamp"
	KindDate      Kind = "date"
	KindDuration  Kind = "duration"
	KindReference Kind = "reference"
	KindPattern   Kind = "pattern"
	KindList      Kind = "list"
)

// FromStringFunc converts a source string into a typed value.
// Returning ErrNotApplicable stores the string unchanged.
type FromStringFunc func(string) (any, error)

// ToStringFunc renders a typed value back to its string form.
type ToStringFunc func(any) (string, error)

// Converter is a bidirectional string conversion for one kind.
type Converter struct {
	Kind       Kind
	FromString FromStringFunc
	ToString   ToStringFunc
	// Quote marks converters accepting arbitrary expressions. Text writers
	// triple-quote their output so embedded quotes survive a round trip.
	Quote bool
}

var converters = struct {
	sync.RWMutex
	byKind map[Kind]Converter
}{byKind: make(map[Kind]Converter)}

func init() {
	for _, c := range []Converter{
		{Kind: KindInt, FromString: intFromString, ToString: intToString},
		{Kind: KindFloat, FromString: floatFromString, ToString: floatToString},
		{Kind: KindString, FromString: stringFromString, ToString: stringToString},
		{Kind: KindBool, FromString: boolFromString, ToString: boolToString},
		{Kind: KindTimestamp, FromString: timestampFromString, ToString: timestampToString},
		{Kind: KindDate, FromString: dateFromString, ToString: dateToString},
		{Kind: KindDuration, FromString: durationFromString, ToString: durationToString},
		{Kind: KindReference, FromString: referenceFromString, ToString: referenceToString, Quote: true},
		{Kind: KindPattern, FromString: patternFromString, ToString: patternToString, Quote: true},
		{Kind: KindList, FromString: listFromString, ToString: listToString},
	} {
		RegisterConverter(c)
	}
}

// RegisterConverter adds or replaces the converter for c.Kind.
func RegisterConverter(c Converter) {
	converters.Lock()
	defer converters.Unlock()
	converters.byKind[c.Kind] = c
}

// LookupConverter returns the converter registered for kind.
func LookupConverter(kind Kind) (Converter, bool) {
	converters.RLock()
	defer converters.RUnlock()
	c, ok := converters.byKind[kind]
	return c, ok
}

// KindOf returns the kind matching the runtime type of v, or "" when no
// registered kind applies.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return ""
	case bool:
		return KindBool
	case string:
		return KindString
	case time.Time:
		return KindTimestamp
	case civil.Date:
		return KindDate
	case time.Duration:
		return KindDuration
	case *regexp.Regexp:
		return KindPattern
	case []string:
		return KindList
	case Kind, HasRequiredConfig, qualifiedNamer:
		return KindReference
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	}

	if _, ok := NameOf(v); ok {
		return KindReference
	}
	return ""
}

// deduceConverter selects a converter from the runtime type of a default value.
// Numeric results are converted back to the exact type of the default. When no
// kind matches, the identity on that type is used.
func deduceConverter(def any) Converter {
	kind := KindOf(def)
	if kind == "" {
		return identityConverter(reflect.TypeOf(def))
	}

	c, _ := LookupConverter(kind)
	target := reflect.TypeOf(def)
	if (kind == KindInt || kind == KindFloat) && target != reflect.TypeOf(0) && target != reflect.TypeOf(0.0) {
		c.FromString = func(s string) (any, error) {
			return parseSized(strings.TrimSpace(s), target)
		}
	}
	return c
}

// parseSized parses s at the bit size of target so out-of-range input fails
// instead of wrapping.
func parseSized(s string, target reflect.Type) (any, error) {
	var v any
	var err error
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err = strconv.ParseInt(s, 10, target.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err = strconv.ParseUint(s, 10, target.Bits())
	default:
		v, err = strconv.ParseFloat(s, target.Bits())
	}
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(v).Convert(target).Interface(), nil
}

// identityConverter keeps strings as they are, converting to string-based types.
func identityConverter(t reflect.Type) Converter {
	c := Converter{
		FromString: stringFromString,
		ToString: func(v any) (string, error) {
			return fmt.Sprint(v), nil
		},
		Quote: true,
	}
	if t == nil {
		c.Kind = KindString
		c.Quote = false
		return c
	}
	c.Kind = Kind(t.String())
	if t.Kind() == reflect.String {
		c.Quote = false
		c.FromString = func(s string) (any, error) {
			return reflect.ValueOf(s).Convert(t).Interface(), nil
		}
	}
	return c
}

func intFromString(s string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, err
	}
	return int(n), nil
}

func intToString(v any) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	}
	return fmt.Sprint(v), nil
}

func floatFromString(s string) (any, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func floatToString(v any) (string, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	}
	return fmt.Sprint(v), nil
}

func stringFromString(s string) (any, error) {
	return s, nil
}

func stringToString(v any) (string, error) {
	return fmt.Sprint(v), nil
}

// boolFromString accepts true, t, 1, y and yes in any case; everything else is false.
func boolFromString(s string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "y", "yes":
		return true, nil
	}
	return false, nil
}

func boolToString(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return fmt.Sprint(v), nil
	}
	if b {
		return "True", nil
	}
	return "False", nil
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

func timestampFromString(s string) (any, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp %q, expected YYYY-MM-DDTHH:MM:SS[.ffffff] or YYYY-MM-DD", s)
}

func timestampToString(v any) (string, error) {
	t, ok := v.(time.Time)
	if !ok {
		return fmt.Sprint(v), nil
	}
	if t.Location() != time.UTC {
		return t.Format(time.RFC3339Nano), nil
	}
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05"), nil
	}
	if t.Nanosecond()%1000 != 0 {
		return t.Format("2006-01-02T15:04:05.000000000"), nil
	}
	return t.Format("2006-01-02T15:04:05.000000"), nil
}

func dateFromString(s string) (any, error) {
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := timestampFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return civil.DateOf(t.(time.Time)), nil
}

func dateToString(v any) (string, error) {
	if d, ok := v.(civil.Date); ok {
		return d.String(), nil
	}
	return fmt.Sprint(v), nil
}

func durationFromString(s string) (any, error) {
	return parseDuration(s)
}

func durationToString(v any) (string, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return fmt.Sprint(v), nil
	}
	return formatDuration(d), nil
}

// parseDuration reads [DD:]HH:MM:SS and DD HH:MM:SS, where the rightmost
// component is seconds and may be fractional. Go duration syntax (1h30m) is
// accepted as well.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if strings.IndexFunc(s, func(r rune) bool { return r >= 'a' && r <= 'z' || r == 'µ' }) >= 0 {
		return time.ParseDuration(s)
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if fields := strings.Fields(s); len(fields) == 2 {
		s = fields[0] + ":" + fields[1]
	} else if len(fields) > 2 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 4 {
		return 0, fmt.Errorf("invalid duration %q, too many components", s)
	}

	units := []time.Duration{time.Second, time.Minute, time.Hour, 24 * time.Hour}
	var total time.Duration
	for i := 0; i < len(parts); i++ {
		part := strings.TrimSpace(parts[len(parts)-1-i])
		if i == 0 {
			secs, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid seconds %q in duration", part)
			}
			total += time.Duration(secs * float64(time.Second))
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid component %q in duration", part)
		}
		total += time.Duration(n) * units[i]
	}

	if negative {
		total = -total
	}
	return total, nil
}

// formatDuration renders d as [D:]HH:MM:SS, with fractional seconds when present.
func formatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute

	seconds := fmt.Sprintf("%02d", d/time.Second)
	if d%time.Second != 0 {
		seconds = strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
		if d < 10*time.Second {
			seconds = "0" + seconds
		}
	}

	if days > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d:%s", sign, days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%s%02d:%02d:%s", sign, hours, minutes, seconds)
}

func referenceFromString(s string) (any, error) {
	return Lookup(strings.TrimSpace(s))
}

func referenceToString(v any) (string, error) {
	if name, ok := NameOf(v); ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: value of type %T is not registered", ErrUnknownReference, v)
}

func patternFromString(s string) (any, error) {
	return regexp.Compile(s)
}

func patternToString(v any) (string, error) {
	if re, ok := v.(*regexp.Regexp); ok {
		return re.String(), nil
	}
	return fmt.Sprint(v), nil
}

// listFromString splits on commas and trims each element.
func listFromString(s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return []string{}, nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

func listToString(v any) (string, error) {
	if list, ok := v.([]string); ok {
		return strings.Join(list, ", "), nil
	}
	return fmt.Sprint(v), nil
}
