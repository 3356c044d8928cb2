// Package resolve turns a raw provider response of any supported shape into a
// GenerationResult for one mode.
package resolve

import (
	"encoding/json"
	"fmt"
	"strings"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/unwrap"
)

// DefaultProvider is assumed when neither the response nor the model name says otherwise.
const DefaultProvider = "openai"

// envelopeFields may carry the real response as an embedded JSON document.
var envelopeFields = []string{"content", "output", "response", "result"}

// maxLiftDepth bounds how many layers of wrapping are peeled off.
const maxLiftDepth = 3

type Resolver struct {
	primaryProvider string
}

func New(primaryProvider string) *Resolver {
	p := normalizeProvider(primaryProvider)
	if p == "" {
		p = DefaultProvider
	}
	return &Resolver{primaryProvider: p}
}

// Resolve normalizes raw (map, JSON text, plain text, or bytes) for spec. It fails
// with ErrMissingPayload when nothing usable is found for the mode.
func (r *Resolver) Resolve(raw any, spec modes.Spec) (*types.GenerationResult, error) {
	obj, plain, err := toObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: mode %s: %v", types.ErrMissingPayload, spec.Mode, err)
	}
	keys := spec.Keys()
	if obj != nil {
		liftEnvelopes(obj)
		liftEncodedKeys(obj, keys)
		if plain == "" && !hasAnyKey(obj, keys) {
			if s, ok := obj["content"].(string); ok && strings.TrimSpace(s) != "" {
				plain = s
			}
		}
	} else {
		obj = map[string]any{}
	}

	res := &types.GenerationResult{
		BodyVariantKey: spec.Key,
		Confidence:     types.UnknownConfidence(),
		Citations:      types.Citations{Internal: []string{}, External: []string{}},
		Warnings:       []string{},
		Sources:        []string{},
	}

	if hasAnyKey(obj, keys) {
		err = fillPayload(res, obj, spec)
	} else if plain != "" {
		err = fillPlainPayload(res, plain, spec)
	} else {
		err = missing(spec)
	}
	if err != nil {
		return nil, err
	}

	meta, _ := obj["metadata"].(map[string]any)
	res.Confidence = confidenceOf(obj, meta)
	res.Citations = citationsOf(obj)
	res.Warnings = stringList(obj["warnings"])
	res.Sources = sourcesOf(obj["sources"])
	res.Cache = cacheOf(obj, meta)
	res.Metadata = r.metadataOf(obj, meta)
	return res, nil
}

func missing(spec modes.Spec) error {
	return fmt.Errorf("%w: mode %s expects one of %s", types.ErrMissingPayload, spec.Mode, strings.Join(spec.Keys(), ", "))
}

func toObject(raw any) (map[string]any, string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, "", fmt.Errorf("empty response")
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, "", nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, "", fmt.Errorf("empty response")
		}
		if obj, ok := unwrap.ParseObject(v); ok {
			return obj, "", nil
		}
		return nil, v, nil
	case []byte:
		return bytesToObject(v)
	case json.RawMessage:
		return bytesToObject(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("unsupported response type %T", raw)
		}
		return bytesToObject(b)
	}
}

func bytesToObject(b []byte) (map[string]any, string, error) {
	var decoded any
	if err := json.Unmarshal(b, &decoded); err == nil {
		switch d := decoded.(type) {
		case map[string]any:
			return d, "", nil
		case string:
			return toObject(d)
		}
	}
	return toObject(string(b))
}

// liftEnvelopes merges JSON carried inside envelope fields into the top level and
// drops the envelope. Existing non-empty top-level values win.
func liftEnvelopes(obj map[string]any) {
	for depth := 0; depth < maxLiftDepth; depth++ {
		lifted := false
		for _, f := range envelopeFields {
			inner := embeddedObject(obj[f])
			if inner == nil {
				continue
			}
			delete(obj, f)
			for k, v := range inner {
				if isEmpty(obj[k]) {
					obj[k] = v
				}
			}
			lifted = true
		}
		if !lifted {
			return
		}
	}
}

// liftEncodedKeys handles a payload key whose value is itself an encoded object
// holding the payload (double encoding). Payload keys from the inner object replace
// the encoded value; other inner keys only fill gaps.
func liftEncodedKeys(obj map[string]any, keys []string) {
	payload := append(append([]string{}, keys...), unwrap.DefaultKeys...)
	for depth := 0; depth < maxLiftDepth; depth++ {
		lifted := false
		for _, k := range keys {
			s, ok := obj[k].(string)
			if !ok || !unwrap.LooksLikeJSON(s) {
				continue
			}
			inner, ok := unwrap.ParseObject(s)
			if !ok || !hasAnyKey(inner, keys) {
				continue
			}
			delete(obj, k)
			for ik, iv := range inner {
				if contains(payload, ik) || isEmpty(obj[ik]) {
					obj[ik] = iv
				}
			}
			lifted = true
		}
		if !lifted {
			return
		}
	}
}

func embeddedObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		if !unwrap.LooksLikeJSON(t) && !strings.Contains(t, `{\"`) {
			return nil
		}
		obj, ok := unwrap.ParseObject(t)
		if !ok {
			return nil
		}
		return obj
	}
	return nil
}

func hasAnyKey(obj map[string]any, keys []string) bool {
	for _, k := range keys {
		if !isEmpty(obj[k]) {
			return true
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
