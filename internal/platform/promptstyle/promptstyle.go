// Package promptstyle wraps system prompts with the house guidance block.
package promptstyle

import "strings"

const marker = "AUTHORING_PROMPT_STYLE_V1"

// ApplySystem prepends the guidance block to a system prompt. Applying it twice is
// a no-op. mode "json" adds the single-object output rule.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	taskSummary := ""
	for _, line := range strings.Split(base, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			taskSummary = trimmed
			break
		}
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou are a careful medical education author.")
	if taskSummary != "" {
		b.WriteString("\nTask summary: " + taskSummary)
	}
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nUse provided inputs as grounding; do not invent facts or citations.")
	b.WriteString("\nFlag uncertain or safety-relevant statements in warnings.")
	if mode == "json" {
		b.WriteString("\nReturn a single JSON object with exactly the keys requested. Do not wrap it in markdown fences.")
	} else {
		b.WriteString("\nBe concise and structured when helpful.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
