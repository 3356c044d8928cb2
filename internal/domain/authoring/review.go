package authoring

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type ReviewIssue struct {
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Line        *int     `json:"line,omitempty"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

type ReviewMetadata struct {
	Model string  `json:"model"`
	Cost  float64 `json:"cost"`
}

// ReviewReport is the critic's verdict on a piece of content.
type ReviewReport struct {
	Approved          bool            `json:"approved"`
	Confidence        ConfidenceLevel `json:"confidence"`
	SafetyScore       float64         `json:"safety_score"`
	CompletenessScore float64         `json:"completeness_score"`
	Issues            []ReviewIssue   `json:"issues"`
	Strengths         []string        `json:"strengths"`
	MissingSections   []string        `json:"missing_sections"`
	Metadata          ReviewMetadata  `json:"metadata"`
}

func (r *ReviewReport) HasSeverity(s Severity) bool {
	for _, is := range r.Issues {
		if is.Severity == s {
			return true
		}
	}
	return false
}
