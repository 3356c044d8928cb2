package unwrap

import (
	"encoding/json"
	"strings"
)

const fence = "```"

var whitespaceEscapes = strings.NewReplacer(
	`\r\n`, "\n",
	`\n`, "\n",
	`\t`, "\t",
)

// UnescapeWhitespace turns literal backslash-n / backslash-t sequences into real whitespace.
func UnescapeWhitespace(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return whitespaceEscapes.Replace(s)
}

// StripFence removes one surrounding fenced-block marker pair (``` or ```json)
// and trims the result. A fence is only stripped when it wraps the whole input:
// markdown with several code blocks is returned trimmed but otherwise intact.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, fence) {
		return s
	}
	inner := s[len(fence):]
	if tag := fenceTagLen(inner); tag > 0 {
		inner = inner[tag:]
	}
	hasClosing := strings.HasSuffix(inner, fence)
	if hasClosing {
		inner = inner[:len(inner)-len(fence)]
	}
	if strings.Contains(inner, fence) {
		return s
	}
	inner = trimBreaks(inner)
	return strings.TrimSpace(inner)
}

// fenceTagLen returns the length of a language tag ("json", "markdown") directly
// after an opening fence, but only when a line break follows it.
func fenceTagLen(s string) int {
	i := 0
	for i < len(s) && isTagChar(s[i]) {
		i++
	}
	if i == 0 {
		return 0
	}
	rest := s[i:]
	if rest == "" || rest[0] == '\n' || rest[0] == '\r' || strings.HasPrefix(rest, `\n`) || strings.HasPrefix(rest, `\r\n`) {
		return i
	}
	return 0
}

func isTagChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == '+'
}

// trimBreaks strips real and literal (backslash-n) line breaks from both ends.
func trimBreaks(s string) string {
	for {
		before := s
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, `\r\n`)
		s = strings.TrimPrefix(s, `\n`)
		s = strings.TrimSuffix(s, `\r\n`)
		s = strings.TrimSuffix(s, `\n`)
		if s == before {
			return s
		}
	}
}

// LooksLikeJSON reports whether s, once unfenced, starts like a JSON object or array.
func LooksLikeJSON(s string) bool {
	t := StripFence(s)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

// ParseObject recovers a JSON object from s using the same strategies as Unwrap:
// direct parse, first-brace/last-brace slice, then one level of string unescaping.
func ParseObject(s string) (map[string]any, bool) {
	body := StripFence(s)
	if body == "" {
		return nil, false
	}
	if obj, ok := decodeObject(body); ok {
		return obj, true
	}
	if inner, ok := braceSlice(body); ok {
		if obj, ok := decodeObject(inner); ok {
			return obj, true
		}
	}
	if decoded, ok := decodeEscaped(body); ok {
		if obj, ok := decodeObject(decoded); ok {
			return obj, true
		}
		if inner, ok := braceSlice(decoded); ok {
			if obj, ok := decodeObject(inner); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// ParseValue is ParseObject extended to top-level JSON arrays.
func ParseValue(s string) (any, bool) {
	body := StripFence(s)
	if strings.HasPrefix(body, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(body), &arr); err == nil {
			return arr, true
		}
		if decoded, ok := decodeEscaped(body); ok {
			if err := json.Unmarshal([]byte(decoded), &arr); err == nil {
				return arr, true
			}
		}
		return nil, false
	}
	obj, ok := ParseObject(body)
	if !ok {
		return nil, false
	}
	return obj, true
}

func decodeObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func braceSlice(s string) (string, bool) {
	i := strings.Index(s, "{")
	j := strings.LastIndex(s, "}")
	if i < 0 || j <= i {
		return "", false
	}
	return s[i : j+1], true
}

// decodeEscaped undoes one level of JSON string escaping (`{\"a\": 1}` -> `{"a": 1}`).
// A body that is itself a quoted JSON string literal is decoded as such.
func decodeEscaped(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var out string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return out, true
		}
	}
	if !strings.Contains(s, `\"`) {
		return "", false
	}
	out, ok := decodeFragment(s)
	if !ok || out == s {
		return "", false
	}
	return out, true
}

var rawControl = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)

// decodeFragment decodes s as the inside of a JSON string literal.
func decodeFragment(s string) (string, bool) {
	var out string
	if err := json.Unmarshal([]byte(`"`+rawControl.Replace(s)+`"`), &out); err != nil {
		return "", false
	}
	return out, true
}
