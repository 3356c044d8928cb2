// Package unwrap recovers the plain-text payload from whatever an LLM sent back:
// fenced blocks, JSON objects, JSON that was escaped one level too many, or
// truncated JSON. Every strategy is a pure function; the first one that
// succeeds wins and Unwrap never fails.
package unwrap

import (
	"strings"
)

// DefaultKeys are the body keys tried, in order, when the caller names none.
var DefaultKeys = []string{"full_text", "high_yield", "deep_dive"}

type Strategy string

const (
	StrategyEmpty       Strategy = "empty"
	StrategyJSON        Strategy = "json"
	StrategyBraceSlice  Strategy = "brace_slice"
	StrategyEscapedJSON Strategy = "escaped_json"
	StrategyKeyScan     Strategy = "key_scan"
	StrategyPlain       Strategy = "plain"
)

// Outcome reports which strategy produced Text. Degraded is set when a late
// fallback (literal key scan, or plain text for JSON-looking input) was needed.
type Outcome struct {
	Text     string
	Strategy Strategy
	Degraded bool
}

type strategy struct {
	name     Strategy
	degraded bool
	run      func(body string, keys []string) (string, bool)
}

var chain = []strategy{
	{name: StrategyJSON, run: fromJSON},
	{name: StrategyBraceSlice, run: fromBraceSlice},
	{name: StrategyEscapedJSON, run: fromEscapedJSON},
	{name: StrategyKeyScan, degraded: true, run: fromKeyScan},
}

// Unwrap returns the best-effort text payload of s using DefaultKeys.
func Unwrap(s string) string {
	return UnwrapKeys(s, nil).Text
}

// UnwrapDetailed is Unwrap plus the strategy that produced the text.
func UnwrapDetailed(s string) Outcome {
	return UnwrapKeys(s, nil)
}

// UnwrapKeys tries keys (highest priority first) before DefaultKeys. The chain is
// re-applied until the text stops changing; every step either leaves its input
// alone or shortens it, so this terminates and the result is a fixed point. The
// text is empty only when s is blank.
func UnwrapKeys(s string, keys []string) Outcome {
	keys = mergeKeys(keys)
	first := step(s, keys)
	out := first
	for {
		next := step(out.Text, keys)
		if next.Text == out.Text {
			break
		}
		out.Text = next.Text
		out.Degraded = out.Degraded || next.Degraded
	}
	if strings.TrimSpace(out.Text) == "" {
		// Non-blank input never unwraps to nothing; hand back the input itself.
		if raw := strings.TrimSpace(s); raw != "" {
			return Outcome{Text: raw, Strategy: StrategyPlain, Degraded: out.Degraded}
		}
	}
	return Outcome{Text: out.Text, Strategy: first.Strategy, Degraded: out.Degraded}
}

func step(s string, keys []string) Outcome {
	body := StripFence(s)
	if body == "" {
		return Outcome{Text: "", Strategy: StrategyEmpty}
	}
	for _, st := range chain {
		if text, ok := st.run(body, keys); ok {
			return Outcome{Text: text, Strategy: st.name, Degraded: st.degraded}
		}
	}
	return Outcome{
		Text:     UnescapeWhitespace(body),
		Strategy: StrategyPlain,
		Degraded: LooksLikeJSON(body),
	}
}

func mergeKeys(keys []string) []string {
	if len(keys) == 0 {
		return DefaultKeys
	}
	out := make([]string, 0, len(keys)+len(DefaultKeys))
	seen := map[string]bool{}
	for _, k := range append(append([]string{}, keys...), DefaultKeys...) {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func fromJSON(body string, keys []string) (string, bool) {
	obj, ok := decodeObject(body)
	if !ok {
		return "", false
	}
	return pickText(obj, keys)
}

func fromBraceSlice(body string, keys []string) (string, bool) {
	inner, ok := braceSlice(body)
	if !ok || inner == body {
		return "", false
	}
	return fromJSON(inner, keys)
}

func fromEscapedJSON(body string, keys []string) (string, bool) {
	decoded, ok := decodeEscaped(body)
	if !ok {
		return "", false
	}
	if text, ok := fromJSON(decoded, keys); ok {
		return text, true
	}
	return fromBraceSlice(decoded, keys)
}

func fromKeyScan(body string, keys []string) (string, bool) {
	candidates := []string{body}
	if strings.Contains(body, `\"`) {
		candidates = append(candidates, strings.ReplaceAll(body, `\"`, `"`))
	}
	for _, c := range candidates {
		for _, k := range keys {
			if text, ok := scanKey(c, k); ok {
				return text, true
			}
		}
	}
	return "", false
}

func pickText(obj map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		v, ok := obj[k].(string)
		if !ok {
			continue
		}
		if text := strings.TrimSpace(UnescapeWhitespace(v)); text != "" {
			return text, true
		}
	}
	return "", false
}

// scanKey finds `"key": "` literally and returns the text up to the next unescaped
// quote followed by `,` or `}`; truncated input runs to the end of the string.
func scanKey(s, key string) (string, bool) {
	needle := `"` + key + `"`
	idx := strings.Index(s, needle)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(s[idx+len(needle):], " \t\r\n")
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	rest = strings.TrimLeft(rest[1:], " \t\r\n")
	if !strings.HasPrefix(rest, `"`) {
		return "", false
	}
	rest = rest[1:]

	end := len(rest)
	for i := 0; i < len(rest); i++ {
		if rest[i] != '"' || escapedAt(rest, i) {
			continue
		}
		after := strings.TrimLeft(rest[i+1:], " \t\r\n")
		if after == "" || after[0] == ',' || after[0] == '}' {
			end = i
			break
		}
	}
	raw := rest[:end]
	if end == len(rest) {
		raw = strings.TrimRight(raw, " \t\r\n}")
		raw = strings.TrimSuffix(raw, `"`)
	}
	raw = strings.TrimPrefix(raw, `"`)
	decoded, ok := decodeFragment(raw)
	if !ok {
		decoded = strings.ReplaceAll(raw, `\"`, `"`)
	}
	text := strings.TrimSpace(UnescapeWhitespace(decoded))
	if text == "" {
		return "", false
	}
	return text, true
}

func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
