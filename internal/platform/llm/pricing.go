package llm

import "strings"

// Price is USD per million tokens.
type Price struct {
	InputPerMTok  float64 `yaml:"input_per_mtok" json:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output_per_mtok" json:"output_per_mtok"`
}

// PriceTable maps a model name or model-name prefix to its price.
type PriceTable map[string]Price

// DefaultPrices is used when configuration does not supply a table.
var DefaultPrices = PriceTable{
	"gpt-4o-mini":      {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"gpt-4o":           {InputPerMTok: 2.50, OutputPerMTok: 10.00},
	"gpt-4.1-mini":     {InputPerMTok: 0.40, OutputPerMTok: 1.60},
	"gpt-4.1":          {InputPerMTok: 2.00, OutputPerMTok: 8.00},
	"gemini-2.5-flash": {InputPerMTok: 0.30, OutputPerMTok: 2.50},
	"gemini-2.5-pro":   {InputPerMTok: 1.25, OutputPerMTok: 10.00},
	"gemini-2.0-flash": {InputPerMTok: 0.10, OutputPerMTok: 0.40},
}

// Lookup matches the model exactly, then by the longest table key it starts with.
func (t PriceTable) Lookup(model string) (Price, bool) {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" {
		return Price{}, false
	}
	if p, ok := t[m]; ok {
		return p, true
	}
	best, bestLen := Price{}, 0
	for k, p := range t {
		if len(k) > bestLen && strings.HasPrefix(m, k) {
			best, bestLen = p, len(k)
		}
	}
	return best, bestLen > 0
}

// Cost prices one call. Unknown models cost 0.
func (t PriceTable) Cost(model string, promptTokens, completionTokens int) float64 {
	p, ok := t.Lookup(model)
	if !ok {
		return 0
	}
	return (float64(promptTokens)*p.InputPerMTok + float64(completionTokens)*p.OutputPerMTok) / 1e6
}

// Merge returns a copy of t with other's entries layered on top.
func (t PriceTable) Merge(other PriceTable) PriceTable {
	out := make(PriceTable, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
