// Package serialize converts resource property structs into
// CloudFormation property maps.
package serialize

import (
	"encoding/json"
	"reflect"
	"strings"

	wetwire "github.com/lex00/wetwire-atlas-go"
)

// Resolver rewrites a reference found in a property value. The returned
// value is encoded with encoding/json and must not be an AttrRef itself.
type Resolver func(ref wetwire.AttrRef) (any, error)

var attrRefType = reflect.TypeOf(wetwire.AttrRef{})

// Serializer converts structs to property maps, passing every AttrRef it
// meets through Resolve. A nil Resolve keeps references as local
// Ref / Fn::GetAtt intrinsics.
type Serializer struct {
	Resolve Resolver
}

// Resource serializes a Go struct to CloudFormation resource properties
// without rewriting references.
func Resource(v any) (map[string]any, error) {
	return (&Serializer{}).Resource(v)
}

// Resource serializes a Go struct to CloudFormation resource properties.
// It handles:
// - json tag names (PascalCase property names)
// - Omitting nil/zero values
// - Nested structs, slices and maps
// - AttrRef values (through the resolver)
func (s *Serializer) Resource(v any) (map[string]any, error) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, nil
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name := getFieldName(field)
		if name == "-" {
			continue
		}

		if isZeroValue(fieldVal) {
			continue
		}

		serialized, err := s.value(fieldVal)
		if err != nil {
			return nil, err
		}

		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// Value serializes a single property value.
func (s *Serializer) Value(v any) (any, error) {
	return s.value(reflect.ValueOf(v))
}

// getFieldName returns the JSON field name for a struct field.
func getFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// isZeroValue returns true if the value is the zero value for its type.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return false
	default:
		return false
	}
}

func (s *Serializer) value(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		return s.value(v.Elem())
	}

	if v.Type() == attrRefType && s.Resolve != nil {
		resolved, err := s.Resolve(v.Interface().(wetwire.AttrRef))
		if err != nil {
			return nil, err
		}
		return viaJSON(resolved)
	}

	if v.CanInterface() {
		if _, ok := v.Interface().(json.Marshaler); ok {
			return viaJSON(v.Interface())
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		return s.Resource(v.Interface())

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := s.value(v.Index(i))
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
		result := make(map[string]any)
		iter := v.MapRange()
		for iter.Next() {
			val, err := s.value(iter.Value())
			if err != nil {
				return nil, err
			}
			result[iter.Key().String()] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		return viaJSON(v.Interface())
	}
}

// viaJSON round-trips v through encoding/json into plain maps and slices.
func viaJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}
