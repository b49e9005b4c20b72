package parse

import (
	"encoding/json"
	"strings"

	"contentpilot/internal/types"
)

// canon folds a key so that briefId, brief_id and BriefID compare equal.
func canon(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

// lookup returns the first key present in m, trying exact matches before
// canonical ones.
func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	for _, k := range keys {
		ck := canon(k)
		for mk, v := range m {
			if canon(mk) == ck {
				return v, true
			}
		}
	}
	return nil, false
}

func str(m map[string]any, keys ...string) string {
	v, _ := lookup(m, keys...)
	return asString(v)
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return ""
}

// asBool accepts booleans, yes/no style strings and numbers.
func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false, false
		}
		return f != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "viable", "1":
			return true, true
		case "false", "no", "n", "not viable", "not_viable", "rejected", "0":
			return false, true
		}
	}
	return false, false
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		return asInt(json.Number(strings.TrimSpace(t)))
	}
	return 0, false
}

// asList wraps a lone object into a one-element list.
func asList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case map[string]any:
		return []any{t}
	}
	return nil
}

// asStrings accepts an array of strings or one comma separated string.
func asStrings(v any) []string {
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s := asString(e); s != "" {
				raw = append(raw, s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				raw = append(raw, s)
			}
		}
	}
	return raw
}

// channels normalizes and dedupes channel names, keeping order.
func channels(v any) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range asStrings(v) {
		ch := types.NormalizeChannel(s)
		if ch == "" || seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	return out
}

// channelMap turns {"Twitter": x} or [{"channel": "twitter", ...}] into a
// map keyed by normalized channel name.
func channelMap(v any) map[string]any {
	out := map[string]any{}
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if ch := types.NormalizeChannel(k); ch != "" {
				out[ch] = val
			}
		}
	case []any:
		for _, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if ch := types.NormalizeChannel(str(m, "channel", "platform", "name")); ch != "" {
				out[ch] = m
			}
		}
	}
	return out
}

// remarshal round-trips v through JSON into dst so the flexible
// UnmarshalJSON methods of the types package apply.
func remarshal(v any, dst any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
