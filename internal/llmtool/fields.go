package llmtool

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// FieldOptions controls how struct fields map to PromptField.
type FieldOptions struct {
	NameTag         string
	DescTag         string
	TypeTag         string
	PromptTag       string
	RequiredDefault bool
	// Flatten expands nested structs into dotted names
	// (contentComponents.primaryComponent.type).
	Flatten bool
}

// DefaultFieldOptions returns the standard tag mapping.
func DefaultFieldOptions() FieldOptions {
	return FieldOptions{
		NameTag:         "json",
		DescTag:         "prompt_desc",
		TypeTag:         "prompt_type",
		PromptTag:       "prompt",
		RequiredDefault: true,
		Flatten:         true,
	}
}

// FieldsFromStruct builds prompt fields from a Go struct using tags.
func FieldsFromStruct(v any, opts ...FieldOptions) ([]PromptField, error) {
	if v == nil {
		return nil, fmt.Errorf("llmtool: struct is nil")
	}
	cfg := DefaultFieldOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llmtool: expected struct, got %s", t.Kind())
	}
	return collectFields(t, "", true, cfg, 0), nil
}

// MustFieldsFromStruct panics on error; useful for prompt spec literals.
func MustFieldsFromStruct(v any, opts ...FieldOptions) []PromptField {
	fields, err := FieldsFromStruct(v, opts...)
	if err != nil {
		panic(err)
	}
	return fields
}

const maxFlattenDepth = 4

func collectFields(t reflect.Type, prefix string, parentRequired bool, cfg FieldOptions, depth int) []PromptField {
	fields := make([]PromptField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || shouldSkipField(f, cfg.PromptTag) {
			continue
		}
		name := fieldName(f, cfg.NameTag)
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		required := cfg.RequiredDefault && parentRequired
		if r, ok := requiredOverride(f, cfg.PromptTag); ok {
			required = r && parentRequired
		}

		inner := f.Type
		for inner.Kind() == reflect.Pointer {
			inner = inner.Elem()
		}
		if cfg.Flatten && inner.Kind() == reflect.Struct && f.Tag.Get(cfg.TypeTag) == "" && depth < maxFlattenDepth {
			fields = append(fields, collectFields(inner, name, required, cfg, depth+1)...)
			continue
		}
		fields = append(fields, PromptField{
			Name:        name,
			Type:        fieldType(f, cfg.TypeTag),
			Required:    required,
			Description: strings.TrimSpace(f.Tag.Get(cfg.DescTag)),
		})
	}
	return fields
}

func shouldSkipField(f reflect.StructField, promptTag string) bool {
	for _, part := range tagParts(f, promptTag) {
		if part == "-" || part == "omit" {
			return true
		}
	}
	return false
}

func requiredOverride(f reflect.StructField, promptTag string) (bool, bool) {
	for _, part := range tagParts(f, promptTag) {
		switch part {
		case "required":
			return true, true
		case "optional":
			return false, true
		}
	}
	return false, false
}

func tagParts(f reflect.StructField, tag string) []string {
	raw := strings.TrimSpace(f.Tag.Get(tag))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func fieldName(f reflect.StructField, nameTag string) string {
	tag := strings.TrimSpace(f.Tag.Get(nameTag))
	if tag != "" {
		name := strings.Split(tag, ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return lowerCamel(f.Name)
}

func fieldType(f reflect.StructField, typeTag string) string {
	if tag := strings.TrimSpace(f.Tag.Get(typeTag)); tag != "" {
		return tag
	}
	return typeString(f.Type)
}

func typeString(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "[]" + typeString(t.Elem())
	case reflect.Map:
		return fmt.Sprintf("map[%s]%s", typeString(t.Key()), typeString(t.Elem()))
	case reflect.Struct:
		return "object"
	case reflect.Interface:
		return "any"
	default:
		return t.Kind().String()
	}
}

func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
