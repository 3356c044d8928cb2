package review

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/resolve"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/unwrap"
)

// reportFields are the keys that identify a bare report object.
var reportFields = []string{"approved", "issues", "safety_score", "completeness_score"}

type Normalizer struct {
	resolver *resolve.Resolver
	spec     modes.Spec
}

func NewNormalizer(primaryProvider string) *Normalizer {
	spec, _ := modes.Lookup(modes.ReviewCritic)
	return &Normalizer{resolver: resolve.New(primaryProvider), spec: spec}
}

// Normalize accepts a report wrapped under "report", a bare report object, or
// either of those as fenced or escaped JSON text.
func (n *Normalizer) Normalize(raw any) (*types.ReviewReport, error) {
	raw = wrapBareReport(raw)
	res, err := n.resolver.Resolve(raw, n.spec)
	if err != nil {
		return nil, err
	}
	obj, ok := res.Structured.(map[string]any)
	if !ok {
		if s, isStr := res.Structured.(string); isStr {
			obj, ok = unwrap.ParseObject(s)
		}
	}
	if !ok || !hasReportField(obj) {
		return nil, fmt.Errorf("%w: review report is not an object", types.ErrMissingPayload)
	}

	rep := &types.ReviewReport{
		Approved:          boolOf(obj["approved"]),
		Confidence:        confidenceOf(obj["confidence"], res.Confidence.Level),
		SafetyScore:       score(obj["safety_score"]),
		CompletenessScore: score(obj["completeness_score"]),
		Issues:            issuesOf(obj["issues"]),
		Strengths:         textList(obj["strengths"]),
		MissingSections:   textList(obj["missing_sections"]),
		Metadata: types.ReviewMetadata{
			Model: res.Metadata.Model,
			Cost:  res.Metadata.Cost.Total,
		},
	}
	if rep.HasSeverity(types.SeverityHigh) {
		rep.Approved = false
	}
	return rep, nil
}

// wrapBareReport moves a top-level report object, or one carried as JSON in an
// envelope's content field, under the "report" key so the resolver finds it.
// Provenance keys stay at the top level.
func wrapBareReport(raw any) any {
	obj := objectOf(raw)
	if obj == nil || obj["report"] != nil {
		return raw
	}
	report := obj
	if !hasReportField(obj) {
		inner := objectOf(obj["content"])
		if inner == nil || inner["report"] != nil || !hasReportField(inner) {
			return raw
		}
		report = inner
	}
	out := map[string]any{"report": report}
	for _, k := range []string{"model", "metadata", "cost", "usage", "provider", "cache"} {
		if v, ok := obj[k]; ok {
			out[k] = v
		}
	}
	return out
}

func objectOf(v any) map[string]any {
	var obj map[string]any
	switch t := v.(type) {
	case map[string]any:
		obj = t
	case string:
		obj, _ = unwrap.ParseObject(t)
	case []byte:
		obj, _ = unwrap.ParseObject(string(t))
	case json.RawMessage:
		obj, _ = unwrap.ParseObject(string(t))
	}
	return obj
}

func hasReportField(obj map[string]any) bool {
	for _, k := range reportFields {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func issuesOf(v any) []types.ReviewIssue {
	out := []types.ReviewIssue{}
	items, _ := v.([]any)
	for _, item := range items {
		switch it := item.(type) {
		case string:
			if s := strings.TrimSpace(it); s != "" {
				out = append(out, types.ReviewIssue{Severity: types.SeverityMedium, Description: s})
			}
		case map[string]any:
			is := types.ReviewIssue{
				Severity:    severityOf(it["severity"]),
				Category:    str(it["category"]),
				Description: str(it["description"]),
				Suggestion:  str(it["suggestion"]),
			}
			if is.Description == "" {
				is.Description = str(it["message"])
			}
			if n, ok := num(it["line"]); ok && n >= 1 {
				line := int(n)
				is.Line = &line
			}
			if is.Description == "" && is.Category == "" {
				continue
			}
			out = append(out, is)
		}
	}
	return out
}

func severityOf(v any) types.Severity {
	switch strings.ToLower(strings.TrimSpace(str(v))) {
	case "high", "critical", "severe", "major":
		return types.SeverityHigh
	case "low", "minor", "info", "trivial":
		return types.SeverityLow
	}
	return types.SeverityMedium
}

func confidenceOf(v any, fallback types.ConfidenceLevel) types.ConfidenceLevel {
	switch strings.ToLower(strings.TrimSpace(str(v))) {
	case "high":
		return types.ConfidenceHigh
	case "medium", "moderate":
		return types.ConfidenceMedium
	case "low":
		return types.ConfidenceLow
	}
	if fallback != "" {
		return fallback
	}
	return types.ConfidenceLow
}

// score clamps to [0, 100]; missing or unreadable scores are 0.
func score(v any) float64 {
	f, ok := num(v)
	if !ok {
		return 0
	}
	switch {
	case f < 0:
		return 0
	case f > 100:
		return 100
	}
	return f
}

func textList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			s := str(item)
			if m, ok := item.(map[string]any); ok {
				s = str(m["description"])
				if s == "" {
					s = str(m["name"])
				}
			}
			if s != "" {
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

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// num reads a finite number; NaN and infinities are unreadable.
func num(v any) (float64, bool) {
	f, ok := numValue(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
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

func boolOf(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	}
	return false
}
