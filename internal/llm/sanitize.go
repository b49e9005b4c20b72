package llm

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"unicode/utf8"
)

const redactedMedia = "[REDACTED media]"

var (
	reDataURL = regexp.MustCompile(`(?is)\bdata:(image|video|audio)/[a-z0-9+.-]+;base64,[a-z0-9+/=\r\n]+`)
	reImgTag  = regexp.MustCompile(`(?is)<img[^>]*src=["']data:(image)/[^"']+["'][^>]*>`)
	reAPIKey  = regexp.MustCompile(`\b(sk-(?:ant-)?[A-Za-z0-9_-]{16,}|gsk_[A-Za-z0-9]{16,}|AIza[0-9A-Za-z_-]{30,})\b`)
)

// RedactMedia walks any JSON-like value and replaces media payloads with a marker.
func RedactMedia(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = RedactMedia(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = RedactMedia(vv)
		}
		return out
	case string:
		if reDataURL.MatchString(x) || reImgTag.MatchString(x) || looksLikeBase64Image(x) {
			return redactedMedia
		}
		return RedactText(x, 0)
	default:
		return v
	}
}

// RedactText replaces inline media payloads and API keys in s and, when
// maxBytes > 0, truncates the result on a rune boundary.
func RedactText(s string, maxBytes int) string {
	s = reImgTag.ReplaceAllString(s, redactedMedia)
	s = reDataURL.ReplaceAllString(s, redactedMedia)
	s = reAPIKey.ReplaceAllString(s, "[REDACTED key]")
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + fmt.Sprintf("...[truncated %d bytes]", len(s)-cut)
}

func looksLikeBase64Image(s string) bool {
	if len(s) < 512 {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}
