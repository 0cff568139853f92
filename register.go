// FILE: lixenwraith/strata/register.go
package strata

import (
	"fmt"
	"reflect"
	"strings"
)

// loadStruct defines options from a struct. Field values are the defaults and
// struct tags supply the rest:
//
//	strata:"name"    option name, "-" skips the field (falls back to the toml tag)
//	doc:"text"       doc string
//	short:"p"        command-line short form
//	secret:"true"    masked on output
//	kind:"duration"  converter kind
//
// Nested structs become namespaces.
func loadStruct(dst *Namespace, src any) error {
	v := reflect.ValueOf(src)

	// Handle pointer or direct struct value
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("struct definition requires a non-nil struct pointer or value")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return fmt.Errorf("struct definition requires a struct or struct pointer, got %T", src)
	}

	var errors []string

	// Use a helper function for recursive registration
	registerFields(dst, v, "", &errors)

	if len(errors) > 0 {
		return fmt.Errorf("failed to define %d field(s): %s", len(errors), strings.Join(errors, "; "))
	}

	return nil
}

// registerFields handles the recursive field registration.
func registerFields(ns *Namespace, v reflect.Value, fieldPath string, errors *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		key, skip := fieldKey(field)
		if skip {
			continue // Skip this field
		}

		// Handle nested structs recursively, leaf types with a converter stay options
		fieldType := fieldValue.Type()
		isStruct := fieldValue.Kind() == reflect.Struct
		isPtrToStruct := fieldValue.Kind() == reflect.Ptr && fieldType.Elem().Kind() == reflect.Struct

		if (isStruct || isPtrToStruct) && KindOf(fieldValue.Interface()) == "" && field.Tag.Get("kind") == "" {
			// Dereference pointer if necessary
			nestedValue := fieldValue
			if isPtrToStruct {
				if fieldValue.IsNil() {
					// Skip nil pointers, as their paths aren't well-defined defaults.
					continue
				}
				nestedValue = fieldValue.Elem()
			}

			sub := ns.Namespace(key)
			if doc := field.Tag.Get("doc"); doc != "" {
				sub.Doc = doc
			}
			registerFields(sub, nestedValue, fieldPath+field.Name+".", errors)
			continue
		}

		opt := &Option{
			Doc:     field.Tag.Get("doc"),
			Short:   field.Tag.Get("short"),
			Default: fieldValue.Interface(),
			Kind:    Kind(field.Tag.Get("kind")),
		}
		if opt.Doc == "" {
			opt.Doc = key
		}
		if secret, _ := boolFromString(field.Tag.Get("secret")); secret == true {
			opt.Secret = true
		}
		if ref := field.Tag.Get("ref"); ref != "" {
			opt.ReferenceValueFrom = ref
		}

		if err := ns.Set(key, opt); err != nil {
			*errors = append(*errors, fmt.Sprintf("field %s%s (key %s): %v", fieldPath, field.Name, key, err))
		}
	}
}

// fieldKey returns the option name for a struct field.
func fieldKey(field reflect.StructField) (string, bool) {
	for _, tagName := range []string{"strata", "toml"} {
		tag := field.Tag.Get(tagName)
		if tag == "-" {
			return "", true
		}
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name, false
		}
	}
	return strings.ToLower(field.Name), false
}
