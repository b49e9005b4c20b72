package jsonutil

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no JSON object or array can be located.
var ErrNoJSON = errors.New("jsonutil: no JSON payload found")

// Extract locates one JSON document inside free text. Backends wrap JSON
// in prose or ``` fences; Extract strips fences, then scans for every
// outermost '{' or '[' whose matching close (string and escape aware)
// yields valid JSON. Objects beat arrays of documents, which beat arrays
// of scalars such as a footnote "[1]"; ties go to the longest candidate.
// A response that is a JSON string containing a document is unwrapped
// once.
func Extract(text string) ([]byte, error) {
	s := strings.TrimSpace(stripFences(text))
	if s == "" {
		return nil, ErrNoJSON
	}
	if json.Valid([]byte(s)) {
		var inner string
		if s[0] == '"' && json.Unmarshal([]byte(s), &inner) == nil {
			return Extract(inner)
		}
		if s[0] == '{' || s[0] == '[' {
			return []byte(s), nil
		}
	}
	var best []byte
	bestRank := -1
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		end := matchClose(s, i)
		if end < 0 {
			continue
		}
		cand := []byte(s[i : end+1])
		if !json.Valid(cand) {
			if fixed := dropTrailingCommas(cand); json.Valid(fixed) {
				cand = fixed
			} else {
				continue
			}
		}
		if r := rank(cand); r > bestRank || (r == bestRank && len(cand) > len(best)) {
			best, bestRank = cand, r
		}
		i = end
	}
	if best == nil {
		return nil, ErrNoJSON
	}
	return best, nil
}

// rank orders valid candidates: 2 for an object, 1 for an array holding
// objects or arrays, 0 for anything else.
func rank(doc []byte) int {
	if doc[0] == '{' {
		return 2
	}
	rest := strings.TrimLeft(string(doc[1:]), " \t\r\n")
	if rest != "" && (rest[0] == '{' || rest[0] == '[') {
		return 1
	}
	return 0
}

// stripFences keeps the body of the first ``` fenced block, if any.
func stripFences(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		lang := strings.TrimSpace(body[:nl])
		if lang == "" || !strings.ContainsAny(lang, "{[") {
			body = body[nl+1:]
		}
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

// matchClose returns the index of the bracket closing s[open], or -1.
func matchClose(s string, open int) int {
	depth := 0
	inStr := false
	esc := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				if (s[open] == '{') != (c == '}') {
					return -1
				}
				return i
			}
		}
	}
	return -1
}

// dropTrailingCommas removes commas directly before a closing bracket,
// outside of strings.
func dropTrailingCommas(b []byte) []byte {
	out := make([]byte, 0, len(b))
	inStr, esc := false, false
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inStr {
			out = append(out, c)
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		if c == '"' {
			inStr = true
		}
		if c == ',' {
			j := i + 1
			for j < len(b) && (b[j] == ' ' || b[j] == '\n' || b[j] == '\r' || b[j] == '\t') {
				j++
			}
			if j < len(b) && (b[j] == '}' || b[j] == ']') {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
