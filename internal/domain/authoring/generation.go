package authoring

import "time"

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

type Confidence struct {
	Level  ConfidenceLevel `json:"level"`
	Reason string          `json:"reason"`
}

// UnknownConfidence is used whenever a provider omits or garbles confidence.
func UnknownConfidence() Confidence {
	return Confidence{Level: ConfidenceLow, Reason: "unknown"}
}

type Citations struct {
	Internal []string `json:"internal"`
	External []string `json:"external"`
}

type CacheInfo struct {
	Hit        bool  `json:"hit"`
	AgeSeconds int64 `json:"age_seconds"`
}

type Cost struct {
	Total float64 `json:"total"`
}

type GenerationMetadata struct {
	Model       string     `json:"model"`
	Provider    string     `json:"provider"`
	Cost        Cost       `json:"cost"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	Fallback    bool       `json:"fallback"`
}

type ParseInfo struct {
	Strategy string `json:"strategy"`
	Degraded bool   `json:"degraded"`
}

// PayloadIntegrity compares the raw payload with the text recovered from it.
type PayloadIntegrity struct {
	RawLen  int     `json:"raw_len"`
	TextLen int     `json:"text_len"`
	Ratio   float64 `json:"ratio"`
}

// GenerationResult is the normalized form of one provider response. It is never persisted.
type GenerationResult struct {
	BodyVariantKey string             `json:"body_variant_key"`
	Text           string             `json:"text"`
	ListItems      []string           `json:"list_items,omitempty"`
	Structured     any                `json:"structured,omitempty"`
	Confidence     Confidence         `json:"confidence"`
	Citations      Citations          `json:"citations"`
	Warnings       []string           `json:"warnings"`
	Sources        []string           `json:"sources"`
	Cache          CacheInfo          `json:"cache"`
	Metadata       GenerationMetadata `json:"metadata"`
	Parse          ParseInfo          `json:"parse"`
	Integrity      PayloadIntegrity   `json:"integrity"`
}
