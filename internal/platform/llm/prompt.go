package llm

import (
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/platform/promptstyle"
)

var instructions = map[modes.Mode]string{
	modes.FullText: "Write the complete reference text for the section titled below. " +
		"Cover definition, pathophysiology, presentation, diagnosis and management where relevant.",
	modes.HighYield: "Condense the existing text into high-yield bullet points a student should memorize. " +
		"Use one \"- \" bullet per line.",
	modes.DeepDive: "Write an advanced deep dive that extends the existing text with mechanisms, evidence and edge cases.",
	modes.Simplify: "Rewrite the existing text in plain language for an early learner without losing accuracy.",
	modes.LearningObjectives: "List measurable learning objectives for the existing text. " +
		"Each objective starts with an action verb.",
	modes.Quiz: "Write multiple-choice questions testing the existing text. " +
		"Each question has a stem, options, the correct answer and an explanation.",
	modes.ExamAnswer: "Answer the exam question below as an expert examiner would, explaining the reasoning.",
	modes.ReviewCritic: "Review the content below for medical accuracy, safety and completeness. " +
		"Report issues with severity low, medium or high, strengths, and missing sections. " +
		"Set approved to false if any issue is high severity.",
}

var payloadShape = map[modes.PayloadKind]string{
	modes.PayloadText:       "a string",
	modes.PayloadList:       "an array of strings",
	modes.PayloadStructured: "an array or object",
}

const reportShape = `{"approved": bool, "confidence": "high|medium|low", "safety_score": 0-100, ` +
	`"completeness_score": 0-100, "issues": [{"severity", "category", "description", "line", "suggestion"}], ` +
	`"strengths": [], "missing_sections": []}`

// Prompt renders the system and user messages for req.
func Prompt(req Request) (string, string, error) {
	spec, err := modes.Lookup(req.Mode)
	if err != nil {
		return "", "", err
	}
	var sys strings.Builder
	sys.WriteString(instructions[spec.Mode])
	if spec.Mode == modes.ReviewCritic {
		fmt.Fprintf(&sys, "\nRespond with JSON: {%q: %s}.", spec.Key, reportShape)
	} else {
		fmt.Fprintf(&sys, "\nRespond with JSON containing %q (%s), %q (high|medium|low), %q (array of strings), %q ({\"internal\": [], \"external\": []}) and %q (array of strings).",
			spec.Key, payloadShape[spec.Kind], "confidence", "sources", "citations", "warnings")
	}
	if req.WebAugmented && spec.WebAugmented {
		sys.WriteString("\nYou may consult current web sources; cite each one you use under citations.external.")
	}

	c := req.Context
	var user strings.Builder
	writeField(&user, "Specialty", c.Specialty)
	writeField(&user, "Parent section", c.ParentSection)
	writeField(&user, "Title", c.Title)
	writeField(&user, "Question", c.Question)
	writeField(&user, "Content type", c.ContentKind)
	if strings.TrimSpace(c.ExistingText) != "" {
		user.WriteString("Existing text:\n")
		user.WriteString(strings.TrimSpace(c.ExistingText))
		user.WriteString("\n")
	}
	return promptstyle.ApplySystem(sys.String(), "json"), strings.TrimSpace(user.String()), nil
}

func writeField(b *strings.Builder, label, v string) {
	if v = strings.TrimSpace(v); v != "" {
		fmt.Fprintf(b, "%s: %s\n", label, v)
	}
}
