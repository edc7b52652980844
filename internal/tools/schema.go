package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
)

// WithInteger declares an integer argument. mcp-go only offers "number".
func WithInteger(name string, opts ...mcp.PropertyOption) mcp.ToolOption {
	return func(t *mcp.Tool) {
		schema := map[string]any{"type": "integer"}
		for _, opt := range opts {
			opt(schema)
		}

		if required, ok := schema["required"].(bool); ok {
			delete(schema, "required")
			if required {
				t.InputSchema.Required = append(t.InputSchema.Required, name)
			}
		}

		t.InputSchema.Properties[name] = schema
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// bindArgs checks raw against the tool's input schema, fills schema defaults,
// decodes into T and applies T's validate tags. All offending fields are
// reported together in one *ValidationError.
func bindArgs[T any](tool mcp.Tool, v *validator.Validate, raw map[string]any) (T, error) {
	var args T

	merged := make(map[string]any, len(tool.InputSchema.Properties))
	for k, val := range raw {
		merged[k] = val
	}

	var fields []FieldError

	for _, name := range tool.InputSchema.Required {
		if val, ok := merged[name]; !ok || val == nil {
			fields = append(fields, FieldError{Field: name, Message: "is required"})
		}
	}

	for _, name := range propertyNames(tool) {
		prop, _ := tool.InputSchema.Properties[name].(map[string]any)

		val, ok := merged[name]
		if !ok || val == nil {
			if def, hasDefault := prop["default"]; hasDefault {
				merged[name] = def
			}

			continue
		}

		want, _ := prop["type"].(string)
		if msg := checkType(want, val); msg != "" {
			fields = append(fields, FieldError{Field: name, Message: msg})
		}
	}

	if len(fields) > 0 {
		return args, &ValidationError{Tool: tool.Name, Fields: fields}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return args, &ValidationError{Tool: tool.Name, Fields: []FieldError{{Field: "arguments", Message: err.Error()}}}
	}

	if err := json.Unmarshal(data, &args); err != nil {
		field := "arguments"
		if typeErr, ok := err.(*json.UnmarshalTypeError); ok && typeErr.Field != "" {
			field = typeErr.Field
		}

		return args, &ValidationError{Tool: tool.Name, Fields: []FieldError{{Field: field, Message: err.Error()}}}
	}

	if reflect.ValueOf(args).Kind() != reflect.Struct {
		return args, nil
	}

	if err := v.Struct(args); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return args, &ValidationError{Tool: tool.Name, Fields: []FieldError{{Field: "arguments", Message: err.Error()}}}
		}

		for _, fe := range validationErrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: constraintMessage(fe)})
		}

		return args, &ValidationError{Tool: tool.Name, Fields: fields}
	}

	return args, nil
}

func propertyNames(tool mcp.Tool) []string {
	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// checkType returns a message when val does not have the JSON schema type want.
func checkType(want string, val any) string {
	var ok bool

	switch want {
	case "string":
		_, ok = val.(string)
	case "boolean":
		_, ok = val.(bool)
	case "number":
		_, ok = toFloat(val)
	case "integer":
		f, isNum := toFloat(val)
		ok = isNum && f == math.Trunc(f) && !math.IsInf(f, 0)
	case "object":
		_, ok = val.(map[string]any)
	case "array":
		_, ok = val.([]any)
	default:
		return ""
	}

	if ok {
		return ""
	}

	return fmt.Sprintf("must be of type %s", want)
}

func toFloat(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte", "min":
		return "must be >= " + fe.Param()
	case "lte", "max":
		return "must be <= " + fe.Param()
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
