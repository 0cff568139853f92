// FILE: lixenwraith/strata/type.go
package strata

import (
	"fmt"
	"regexp"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cast"
)

// String retrieves a string value using the path.
// Values that are not strings are rendered the way their converter writes them.
func (c *Config) String(path string) (string, error) {
	val, found := c.Get(path)
	if !found {
		return "", fmt.Errorf("path not registered: %s", path)
	}
	if val == nil {
		return "", nil // Treat nil as empty string for convenience
	}
	if opt, ok := c.root.Option(path); ok {
		return opt.String(), nil
	}

	s, err := cast.ToStringE(val)
	if err != nil {
		return "", fmt.Errorf("cannot convert type %T to string for path %s: %w", val, path, err)
	}
	return s, nil
}

// Int64 retrieves an int64 value using the path.
// Numeric types, parsable strings and booleans are converted.
func (c *Config) Int64(path string) (int64, error) {
	val, err := c.nonNil(path, "int64")
	if err != nil {
		return 0, err
	}
	i, err := cast.ToInt64E(val)
	if err != nil {
		return 0, fmt.Errorf("cannot convert type %T to int64 for path %s: %w", val, path, err)
	}
	return i, nil
}

// Int retrieves an int value using the path.
func (c *Config) Int(path string) (int, error) {
	i, err := c.Int64(path)
	return int(i), err
}

// Bool retrieves a boolean value using the path.
// Numbers convert as zero or non-zero, strings through the bool converter.
func (c *Config) Bool(path string) (bool, error) {
	val, err := c.nonNil(path, "bool")
	if err != nil {
		return false, err
	}
	if s, ok := val.(string); ok {
		b, err := boolFromString(s)
		if err != nil {
			return false, fmt.Errorf("cannot convert string %q to bool for path %s: %w", s, path, err)
		}
		return b.(bool), nil
	}
	b, err := cast.ToBoolE(val)
	if err != nil {
		return false, fmt.Errorf("cannot convert type %T to bool for path %s: %w", val, path, err)
	}
	return b, nil
}

// Float64 retrieves a float64 value using the path.
func (c *Config) Float64(path string) (float64, error) {
	val, err := c.nonNil(path, "float64")
	if err != nil {
		return 0, err
	}
	f, err := cast.ToFloat64E(val)
	if err != nil {
		return 0, fmt.Errorf("cannot convert type %T to float64 for path %s: %w", val, path, err)
	}
	return f, nil
}

// Duration retrieves a duration value using the path. Strings are parsed by
// the duration converter, so both "1h30m" and "0:1:30:0" are accepted.
func (c *Config) Duration(path string) (time.Duration, error) {
	val, err := c.nonNil(path, "duration")
	if err != nil {
		return 0, err
	}
	if s, ok := val.(string); ok {
		d, err := durationFromString(s)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string %q to duration for path %s: %w", s, path, err)
		}
		return d.(time.Duration), nil
	}
	d, err := cast.ToDurationE(val)
	if err != nil {
		return 0, fmt.Errorf("cannot convert type %T to duration for path %s: %w", val, path, err)
	}
	return d, nil
}

// Time retrieves a timestamp using the path.
func (c *Config) Time(path string) (time.Time, error) {
	val, err := c.nonNil(path, "time")
	if err != nil {
		return time.Time{}, err
	}
	if s, ok := val.(string); ok {
		t, err := timestampFromString(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("cannot convert string %q to time for path %s: %w", s, path, err)
		}
		return t.(time.Time), nil
	}
	t, err := cast.ToTimeE(val)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot convert type %T to time for path %s: %w", val, path, err)
	}
	return t, nil
}

// Date retrieves a calendar date using the path.
func (c *Config) Date(path string) (civil.Date, error) {
	val, err := c.nonNil(path, "date")
	if err != nil {
		return civil.Date{}, err
	}
	switch v := val.(type) {
	case civil.Date:
		return v, nil
	case time.Time:
		return civil.DateOf(v), nil
	case string:
		d, err := dateFromString(v)
		if err != nil {
			return civil.Date{}, fmt.Errorf("cannot convert string %q to date for path %s: %w", v, path, err)
		}
		return d.(civil.Date), nil
	}
	return civil.Date{}, fmt.Errorf("cannot convert type %T to date for path %s", val, path)
}

// StringSlice retrieves a list of strings using the path. A string value is
// split on commas.
func (c *Config) StringSlice(path string) ([]string, error) {
	val, err := c.nonNil(path, "[]string")
	if err != nil {
		return nil, err
	}
	if s, ok := val.(string); ok {
		list, _ := listFromString(s)
		return list.([]string), nil
	}
	out, err := cast.ToStringSliceE(val)
	if err != nil {
		return nil, fmt.Errorf("cannot convert type %T to []string for path %s: %w", val, path, err)
	}
	return out, nil
}

// Pattern retrieves a compiled regular expression using the path.
func (c *Config) Pattern(path string) (*regexp.Regexp, error) {
	val, err := c.nonNil(path, "pattern")
	if err != nil {
		return nil, err
	}
	switch v := val.(type) {
	case *regexp.Regexp:
		return v, nil
	case string:
		re, err := regexp.Compile(v)
		if err != nil {
			return nil, fmt.Errorf("cannot compile pattern %q for path %s: %w", v, path, err)
		}
		return re, nil
	}
	return nil, fmt.Errorf("cannot convert type %T to pattern for path %s", val, path)
}

func (c *Config) nonNil(path, target string) (any, error) {
	val, found := c.Get(path)
	if !found {
		return nil, fmt.Errorf("path not registered: %s", path)
	}
	if val == nil {
		return nil, fmt.Errorf("value for path %s is nil, cannot convert to %s", path, target)
	}
	return val, nil
}
