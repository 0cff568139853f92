// FILE: lixenwraith/strata/decode.go
package strata

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"regexp"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// tagName is the struct tag read by Scan, the same tag that struct
// definitions use for option names.
const tagName = "strata"

// Scan decodes the subtree at basePath into target, a non-nil pointer to a
// struct or map. An empty basePath decodes the whole tree without the admin
// options.
func (c *Config) Scan(basePath string, target any) error {
	return c.unmarshal(basePath, target)
}

// ScanValid decodes like Scan, then validates target with its `validate`
// struct tags.
func (c *Config) ScanValid(basePath string, target any) error {
	if err := c.unmarshal(basePath, target); err != nil {
		return err
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("validation failed for path %q: %w", basePath, err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// unmarshal is the single authoritative function for decoding configuration
// into target structures. All public decoding methods delegate to this.
func (c *Config) unmarshal(basePath string, target any) error {
	// Validate target
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("unmarshal target must be non-nil pointer, got %T", target)
	}

	tree := c.Values()
	sectionMap := make(map[string]any)
	if basePath != "" {
		section, ok := tree.Get(basePath)
		if !ok {
			section = NewValues() // Empty section
		}
		sub, isTree := section.(*Values)
		if !isTree {
			return fmt.Errorf("path %q refers to non-map value (type %T)", basePath, section)
		}
		tree = sub
	}
	for key, value := range tree.Map() {
		sectionMap[key] = value
	}

	// Create decoder with comprehensive hooks
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          tagName,
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
		ZeroFields:       true,
		Metadata:         nil,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("decode failed for path %q: %w", basePath, err)
	}

	return nil
}

// decodeHook returns the composite decode hook for all type conversions
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		// Network types
		stringToNetIPHookFunc(),
		stringToNetIPNetHookFunc(),
		stringToURLHookFunc(),

		// Converter backed types
		stringToDurationHookFunc(),
		stringToDateHookFunc(),
		stringToPatternHookFunc(),

		// Standard hooks
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}

		if t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}

		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}

		return ip, nil
	}
}

// stringToNetIPNetHookFunc handles net.IPNet conversion
func stringToNetIPNetHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(net.IPNet{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 49 { // Max IPv6 CIDR length
			return nil, fmt.Errorf("invalid CIDR length: %d", len(str))
		}
		_, ipnet, err := net.ParseCIDR(str)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR: %w", err)
		}
		if isPtr {
			return ipnet, nil
		}
		return *ipnet, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}

// stringToDurationHookFunc parses durations with the duration converter, so
// "4:3:2:1" decodes as well as "1h30m".
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return durationFromString(data.(string))
	}
}

// stringToDateHookFunc handles civil.Date conversion
func stringToDateHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(civil.Date{}) {
			return data, nil
		}
		return dateFromString(data.(string))
	}
}

// stringToPatternHookFunc compiles strings into *regexp.Regexp targets
func stringToPatternHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(&regexp.Regexp{}) {
			return data, nil
		}
		return regexp.Compile(data.(string))
	}
}
