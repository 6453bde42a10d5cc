// Package serialize turns resource structs into CloudFormation property maps.
//
// Field names come from json tags, zero values are dropped, and values that
// implement json.Marshaler (intrinsics, AttrRef) are rendered through it.
package serialize

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Resource serializes a resource struct to its Properties map.
// Non-struct values yield a nil map.
func Resource(v any) (map[string]any, error) {
	val := reflect.Indirect(reflect.ValueOf(v))
	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name := fieldName(field)
		if name == "-" || isEmpty(val.Field(i)) {
			continue
		}

		serialized, err := serializeValue(val.Field(i))
		if err != nil {
			return nil, err
		}
		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// Value serializes an arbitrary value (an output value, metadata entry or
// intrinsic) with the same rules as resource properties.
func Value(v any) (any, error) {
	return serializeValue(reflect.ValueOf(v))
}

func fieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

// isEmpty mirrors omitempty, plus structs that report IsZero.
func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Struct:
		if z, ok := v.Interface().(interface{ IsZero() bool }); ok {
			return z.IsZero()
		}
		return false
	}
	return v.IsZero()
}

// serializeValue converts a reflect.Value to a JSON-compatible value.
func serializeValue(v reflect.Value) (any, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}

	if marshaler, ok := v.Interface().(json.Marshaler); ok {
		data, err := marshaler.MarshalJSON()
		if err != nil {
			return nil, err
		}
		var result any
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		return result, nil
	}

	switch v.Kind() {
	case reflect.Struct:
		return Resource(v.Interface())

	case reflect.Slice:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := range result {
			elem, err := serializeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val, err := serializeValue(iter.Value())
			if err != nil {
				return nil, err
			}
			result[iter.Key().String()] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	default:
		return v.Interface(), nil
	}
}
