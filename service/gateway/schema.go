package gateway

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Type is the expected dynamic type of an argument.
type Type string

const (
	TypeString Type = "string"
	TypeFloat  Type = "float"
	TypeMap    Type = "map"
)

// Rule is a value predicate; the returned error names the violated constraint.
type Rule func(value interface{}) error

// Param describes one positional argument.
type Param struct {
	Name  string
	Type  Type
	Rules []Rule
}

// Schema describes the positional arguments of a capability.
type Schema struct {
	Params []Param
}

// Validate checks count, types and rules, in that order.
func (s *Schema) Validate(args []interface{}) error {
	if len(args) != len(s.Params) {
		return fmt.Errorf("expected %d arguments, got %d", len(s.Params), len(args))
	}
	for i, param := range s.Params {
		value := args[i]
		if err := checkType(param.Type, value); err != nil {
			return fmt.Errorf("argument %v: %w", param.Name, err)
		}
		for _, rule := range param.Rules {
			if err := rule(value); err != nil {
				return fmt.Errorf("argument %v: %w", param.Name, err)
			}
		}
	}
	return nil
}

// Lookup returns the value of the named argument.
func (s *Schema) Lookup(name string, args []interface{}) (interface{}, bool) {
	for i, param := range s.Params {
		if param.Name == name && i < len(args) {
			return args[i], true
		}
	}
	return nil, false
}

func checkType(expected Type, value interface{}) error {
	if value == nil {
		return fmt.Errorf("expected %v, got nil", expected)
	}
	kind := reflect.TypeOf(value).Kind()
	switch expected {
	case TypeString:
		if kind == reflect.String {
			return nil
		}
	case TypeFloat:
		switch kind {
		case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int32, reflect.Int64:
			return nil
		}
	case TypeMap:
		if _, ok := value.(map[string]interface{}); ok {
			return nil
		}
	default:
		return fmt.Errorf("unsupported type %v", expected)
	}
	return fmt.Errorf("expected %v, got %T", expected, value)
}

// NotEmpty requires a non blank string.
func NotEmpty() Rule {
	return func(value interface{}) error {
		if strings.TrimSpace(asString(value)) == "" {
			return fmt.Errorf("must not be empty")
		}
		return nil
	}
}

// OneOf requires a string value from allowed.
func OneOf(allowed ...string) Rule {
	return func(value interface{}) error {
		actual := asString(value)
		for _, candidate := range allowed {
			if candidate == actual {
				return nil
			}
		}
		return fmt.Errorf("value %q not in [%v]", actual, strings.Join(allowed, ", "))
	}
}

// InRange requires a numeric value within [min, max].
func InRange(min, max float64) Rule {
	return func(value interface{}) error {
		actual, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
		if math.IsNaN(actual) || math.IsInf(actual, 0) {
			return fmt.Errorf("value %v is not a finite number", actual)
		}
		if actual < min || actual > max {
			return fmt.Errorf("value %v outside [%v,%v]", actual, min, max)
		}
		return nil
	}
}

func asString(value interface{}) string {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.String {
		return v.String()
	}
	return fmt.Sprint(value)
}

func asFloat(value interface{}) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	}
	return 0, false
}
