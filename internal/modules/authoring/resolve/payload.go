package resolve

import (
	"encoding/json"
	"strings"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/unwrap"
)

const strategyLines = "lines"

func fillPayload(res *types.GenerationResult, obj map[string]any, spec modes.Spec) error {
	for _, k := range spec.Keys() {
		v := obj[k]
		if isEmpty(v) {
			continue
		}
		if fillValue(res, v, spec) {
			return nil
		}
	}
	return missing(spec)
}

// fillPlainPayload handles a response that is not an object. JSON-looking text
// that never names one of the mode's keys belongs to another mode.
func fillPlainPayload(res *types.GenerationResult, plain string, spec modes.Spec) error {
	if unwrap.LooksLikeJSON(plain) && !mentionsKey(plain, spec.Keys()) {
		return missing(spec)
	}
	if fillValue(res, plain, spec) {
		return nil
	}
	return missing(spec)
}

func fillValue(res *types.GenerationResult, v any, spec modes.Spec) bool {
	switch spec.Kind {
	case modes.PayloadList:
		return fillList(res, v, spec)
	case modes.PayloadStructured:
		return fillStructured(res, v, spec)
	default:
		return fillText(res, v, spec)
	}
}

func fillText(res *types.GenerationResult, v any, spec modes.Spec) bool {
	switch t := v.(type) {
	case string:
		out := unwrap.UnwrapKeys(t, spec.Keys())
		if strings.TrimSpace(out.Text) == "" {
			return false
		}
		res.Text = out.Text
		res.Parse = types.ParseInfo{Strategy: string(out.Strategy), Degraded: out.Degraded}
		res.Integrity = integrity(len(t), len(out.Text))
		return true
	case []any:
		items := stringList(t)
		if len(items) == 0 {
			return false
		}
		res.Text = strings.Join(items, "\n")
		res.Parse = types.ParseInfo{Strategy: string(unwrap.StrategyJSON)}
		res.Integrity = integrity(len(res.Text), len(res.Text))
		return true
	}
	return false
}

func fillList(res *types.GenerationResult, v any, spec modes.Spec) bool {
	var items []string
	strategy := string(unwrap.StrategyJSON)
	degraded := false
	rawLen := 0

	switch t := v.(type) {
	case []any:
		items = stringList(t)
	case string:
		rawLen = len(t)
		if pv, ok := unwrap.ParseValue(t); ok {
			switch p := pv.(type) {
			case []any:
				items = stringList(p)
			case map[string]any:
				for _, k := range spec.Keys() {
					if arr, ok := p[k].([]any); ok {
						items = stringList(arr)
						break
					}
				}
			}
		}
		if len(items) == 0 {
			out := unwrap.UnwrapKeys(t, spec.Keys())
			items = splitLines(out.Text)
			strategy = strategyLines
			degraded = out.Degraded
		}
	}
	if len(items) == 0 {
		return false
	}
	res.ListItems = items
	res.Text = strings.Join(items, "\n")
	res.Parse = types.ParseInfo{Strategy: strategy, Degraded: degraded}
	if rawLen == 0 {
		rawLen = len(res.Text)
	}
	res.Integrity = integrity(rawLen, len(res.Text))
	return true
}

func fillStructured(res *types.GenerationResult, v any, spec modes.Spec) bool {
	var structured any
	strategy := string(unwrap.StrategyJSON)
	degraded := false

	switch t := v.(type) {
	case string:
		if pv, ok := unwrap.ParseValue(t); ok && !isEmpty(pv) {
			structured = pv
		} else {
			out := unwrap.UnwrapKeys(t, spec.Keys())
			if strings.TrimSpace(out.Text) == "" {
				return false
			}
			structured = out.Text
			strategy = string(out.Strategy)
			degraded = out.Degraded
		}
	case map[string]any, []any:
		if isEmpty(t) {
			return false
		}
		structured = t
	default:
		return false
	}

	res.Structured = structured
	if s, ok := structured.(string); ok {
		res.Text = s
	} else {
		b, err := json.Marshal(structured)
		if err != nil {
			return false
		}
		res.Text = string(b)
	}
	res.Parse = types.ParseInfo{Strategy: strategy, Degraded: degraded}
	res.Integrity = integrity(len(res.Text), len(res.Text))
	return true
}

func integrity(rawLen, textLen int) types.PayloadIntegrity {
	pi := types.PayloadIntegrity{RawLen: rawLen, TextLen: textLen}
	if rawLen > 0 {
		pi.Ratio = float64(textLen) / float64(rawLen)
	}
	return pi
}

func mentionsKey(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, `"`+k+`"`) || strings.Contains(s, `\"`+k+`\"`) {
			return true
		}
	}
	return false
}

// splitLines turns a bulleted or numbered block into items.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = trimMarker(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func trimMarker(line string) string {
	for _, p := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, p) {
			return strings.TrimSpace(line[len(p):])
		}
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
