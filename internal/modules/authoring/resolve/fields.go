package resolve

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
)

// InferProvider picks the provider from an explicit value, then the model name,
// then primary.
func InferProvider(explicit, model, primary string) string {
	if p := normalizeProvider(explicit); p != "" {
		return p
	}
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case m == "":
	case strings.Contains(m, "gemini"):
		return "google"
	case strings.Contains(m, "claude"):
		return "anthropic"
	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"),
		strings.HasPrefix(m, "o4"), strings.Contains(m, "openai"):
		return "openai"
	case strings.Contains(m, "llama"), strings.Contains(m, "mistral"), strings.Contains(m, "mixtral"):
		return "local"
	}
	if p := normalizeProvider(primary); p != "" {
		return p
	}
	return DefaultProvider
}

func normalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	switch p {
	case "gemini", "google_ai", "googleai", "vertex":
		return "google"
	case "azure_openai", "azure-openai":
		return "openai"
	case "ollama":
		return "local"
	}
	return p
}

func (r *Resolver) metadataOf(obj, meta map[string]any) types.GenerationMetadata {
	model := firstString(meta["model"], obj["model"], obj["model_used"])
	md := types.GenerationMetadata{
		Model:    model,
		Provider: InferProvider(firstString(meta["provider"], obj["provider"]), model, r.primaryProvider),
		Fallback: boolOf(meta["fallback"]) || boolOf(obj["fallback"]) || boolOf(obj["fallback_used"]),
	}
	usage, _ := obj["usage"].(map[string]any)
	for _, c := range []any{meta["cost"], obj["cost"], usage["cost"], obj["total_cost"]} {
		if total, ok := costOf(c); ok {
			md.Cost = types.Cost{Total: total}
			break
		}
	}
	if ts := timeOf(meta["generated_at"]); ts != nil {
		md.GeneratedAt = ts
	} else {
		md.GeneratedAt = timeOf(obj["generated_at"])
	}
	return md
}

func confidenceOf(obj, meta map[string]any) types.Confidence {
	v := obj["confidence"]
	if v == nil {
		v = obj["confidence_level"]
	}
	if v == nil {
		v = meta["confidence"]
	}
	reason := firstString(obj["confidence_reason"])

	if m, ok := v.(map[string]any); ok {
		if r := firstString(m["reason"]); r != "" {
			reason = r
		}
		v = m["level"]
		if v == nil {
			v = m["score"]
		}
	}
	if v == nil {
		return types.UnknownConfidence()
	}
	level, ok := levelOf(v)
	if !ok {
		if reason == "" {
			reason = "unknown"
		}
		return types.Confidence{Level: types.ConfidenceLow, Reason: reason}
	}
	return types.Confidence{Level: level, Reason: reason}
}

func levelOf(v any) (types.ConfidenceLevel, bool) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "high":
			return types.ConfidenceHigh, true
		case "medium", "moderate", "med":
			return types.ConfidenceMedium, true
		case "low":
			return types.ConfidenceLow, true
		}
	}
	f, ok := number(v)
	if !ok {
		return "", false
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	switch {
	case f >= 0.8:
		return types.ConfidenceHigh, true
	case f >= 0.5:
		return types.ConfidenceMedium, true
	}
	return types.ConfidenceLow, true
}

func citationsOf(obj map[string]any) types.Citations {
	c := types.Citations{Internal: []string{}, External: []string{}}
	seen := map[string]bool{}
	add := func(ref string, external bool) {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		if external {
			c.External = append(c.External, ref)
		} else {
			c.Internal = append(c.Internal, ref)
		}
	}
	classify := func(item any) {
		if ref, ext := citationRef(item); ref != "" {
			add(ref, ext)
		}
	}

	v := obj["citations"]
	if v == nil {
		v = obj["references"]
	}
	switch t := v.(type) {
	case map[string]any:
		_, hasInternal := t["internal"]
		_, hasExternal := t["external"]
		if hasInternal || hasExternal {
			for _, ref := range refList(t["internal"]) {
				add(ref, false)
			}
			for _, ref := range refList(t["external"]) {
				add(ref, true)
			}
		} else {
			classify(t)
		}
	case []any:
		for _, item := range t {
			classify(item)
		}
	case string:
		classify(t)
	}
	for _, ref := range refList(obj["internal_citations"]) {
		add(ref, false)
	}
	for _, ref := range refList(obj["external_citations"]) {
		add(ref, true)
	}
	return c
}

// citationRef returns the reference text of one citation and whether it is external.
func citationRef(item any) (string, bool) {
	switch t := item.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, isURL(s)
	case map[string]any:
		if u := firstString(t["url"], t["href"], t["link"], t["uri"]); u != "" {
			return u, true
		}
		ref := firstString(t["id"], t["ref"], t["title"], t["source"], t["name"])
		return ref, isURL(ref)
	}
	return "", false
}

func isURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "www.")
}

func refList(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if ref, _ := citationRef(item); ref != "" {
				out = append(out, ref)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stringList accepts a string, a list of strings, or a list of objects carrying a
// message/text field. It never returns nil.
func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			var s string
			switch it := item.(type) {
			case string:
				s = it
			case map[string]any:
				s = firstString(it["message"], it["text"], it["objective"], it["title"], it["description"], it["name"])
			case float64, bool:
				s = scalarString(it)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func sourcesOf(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return stringList(v)
	}
	for _, item := range items {
		var s string
		switch it := item.(type) {
		case string:
			s = it
		case map[string]any:
			s = firstString(it["url"], it["uri"], it["title"], it["name"], it["id"])
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func cacheOf(obj, meta map[string]any) types.CacheInfo {
	var ci types.CacheInfo
	v := obj["cache"]
	if v == nil {
		v = meta["cache"]
	}
	switch t := v.(type) {
	case map[string]any:
		ci.Hit = boolOf(t["hit"])
		ci.AgeSeconds = intOf(t["age_seconds"])
		if ci.AgeSeconds == 0 {
			ci.AgeSeconds = intOf(t["age"])
		}
	case bool:
		ci.Hit = t
	}
	if boolOf(obj["cached"]) || boolOf(obj["cache_hit"]) {
		ci.Hit = true
	}
	if ci.AgeSeconds == 0 {
		ci.AgeSeconds = intOf(obj["cache_age_seconds"])
	}
	return ci
}

func costOf(v any) (float64, bool) {
	if m, ok := v.(map[string]any); ok {
		for _, k := range []string{"total", "total_cost", "usd"} {
			if f, ok := number(m[k]); ok {
				return f, true
			}
		}
		return 0, false
	}
	return number(v)
}

// number reads a finite number; NaN and infinities are unreadable.
func number(v any) (float64, bool) {
	f, ok := numberValue(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func intOf(v any) int64 {
	f, ok := number(v)
	if !ok || f < 0 {
		return 0
	}
	return int64(f)
}

func boolOf(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true
		}
	case float64:
		return t != 0
	}
	return false
}

func timeOf(v any) *time.Time {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if ts, err := time.Parse(layout, s); err == nil {
				ts = ts.UTC()
				return &ts
			}
		}
	case float64:
		if t <= 0 {
			return nil
		}
		sec := int64(t)
		if t > 1e12 {
			sec = int64(t / 1000)
		}
		ts := time.Unix(sec, 0).UTC()
		return &ts
	}
	return nil
}

func firstString(vals ...any) string {
	for _, v := range vals {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
