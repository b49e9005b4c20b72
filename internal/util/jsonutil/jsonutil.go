package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// MarshalNoEscape encodes v without turning <, > and & into <-style
// escapes. indent, when non-empty, pretty-prints with that unit.
func MarshalNoEscape(v any, indent ...string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if len(indent) > 0 && indent[0] != "" {
		enc.SetIndent("", indent[0])
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalFlex decodes raw into v, falling back to unwrapping a JSON
// document that was encoded as a string (up to two levels) and to
// unescaping doubled unicode escapes such as "\\u0026".
func UnmarshalFlex(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	norm, err := normalize(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, v)
}

var errNotJSON = errors.New("jsonutil: cannot parse JSON payload")

func normalize(raw []byte) ([]byte, error) {
	var val any
	for depth := 0; ; depth++ {
		if err := json.Unmarshal(raw, &val); err != nil {
			return nil, errNotJSON
		}
		s, ok := val.(string)
		if !ok || depth == 2 {
			break
		}
		raw = []byte(s)
	}
	return MarshalNoEscape(unescapeStrings(val))
}

func unescapeStrings(v any) any {
	switch x := v.(type) {
	case string:
		if !strings.Contains(x, `\u`) {
			return x
		}
		var out string
		if err := json.Unmarshal([]byte(`"`+strings.ReplaceAll(x, `"`, `\"`)+`"`), &out); err != nil {
			return x
		}
		return out
	case []any:
		for i := range x {
			x[i] = unescapeStrings(x[i])
		}
		return x
	case map[string]any:
		for k, vv := range x {
			x[k] = unescapeStrings(vv)
		}
		return x
	default:
		return v
	}
}
