// Package modes is the closed table of generation modes: what each mode expects
// back from the provider, which draft field it may touch, and what must already
// be true of the draft before the provider is called.
package modes

import (
	"fmt"
	"strings"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
)

type Mode string

const (
	FullText           Mode = "fulltext"
	HighYield          Mode = "high_yield"
	DeepDive           Mode = "deep_dive"
	Simplify           Mode = "simplify"
	LearningObjectives Mode = "learning_objectives"
	Quiz               Mode = "quiz"
	ExamAnswer         Mode = "exam_answer"
	ReviewCritic       Mode = "review_critic"
)

type PayloadKind string

const (
	PayloadText       PayloadKind = "text"
	PayloadList       PayloadKind = "list"
	PayloadStructured PayloadKind = "structured"
)

// Spec describes one mode. Target and TargetList are mutually exclusive; a spec
// with neither returns its result without touching the draft.
type Spec struct {
	Mode         Mode
	Key          string
	Aliases      []string
	Kind         PayloadKind
	WebAugmented bool
	Target       types.Field
	TargetList   types.ListField
	RequireTitle bool
	Requires     []types.Field
}

var table = map[Mode]Spec{
	FullText: {
		Mode: FullText, Key: "full_text", Aliases: []string{"text"},
		Kind: PayloadText, WebAugmented: true,
		Target: types.FieldFullText, RequireTitle: true,
	},
	HighYield: {
		Mode: HighYield, Key: "high_yield", Aliases: []string{"summary"},
		Kind: PayloadText, Target: types.FieldHighYield,
		Requires: []types.Field{types.FieldFullText},
	},
	DeepDive: {
		Mode: DeepDive, Key: "deep_dive", Aliases: []string{"text"},
		Kind: PayloadText, WebAugmented: true, Target: types.FieldDeepDive,
		Requires: []types.Field{types.FieldFullText},
	},
	Simplify: {
		Mode: Simplify, Key: "full_text", Aliases: []string{"simplified_text", "text"},
		Kind: PayloadText, Target: types.FieldFullText,
		Requires: []types.Field{types.FieldFullText},
	},
	LearningObjectives: {
		Mode: LearningObjectives, Key: "learning_objectives", Aliases: []string{"objectives"},
		Kind: PayloadList, TargetList: types.ListLearningObjectives,
		Requires: []types.Field{types.FieldFullText},
	},
	Quiz: {
		Mode: Quiz, Key: "quiz", Aliases: []string{"questions"},
		Kind: PayloadStructured,
		Requires: []types.Field{types.FieldFullText},
	},
	ExamAnswer: {
		Mode: ExamAnswer, Key: "answer", Aliases: []string{"text"},
		Kind: PayloadText, WebAugmented: true,
	},
	ReviewCritic: {
		Mode: ReviewCritic, Key: "report",
		Kind: PayloadStructured,
		Requires: []types.Field{types.FieldFullText},
	},
}

var order = []Mode{FullText, HighYield, DeepDive, Simplify, LearningObjectives, Quiz, ExamAnswer, ReviewCritic}

// Parse accepts the canonical names plus dashed spellings ("high-yield", "deep-dive").
func Parse(name string) (Mode, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	switch n {
	case "full_text", "full":
		n = string(FullText)
	case "review", "critic":
		n = string(ReviewCritic)
	}
	m := Mode(n)
	if _, ok := table[m]; !ok {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownMode, name)
	}
	return m, nil
}

func Lookup(m Mode) (Spec, error) {
	spec, ok := table[m]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", types.ErrUnknownMode, string(m))
	}
	return spec, nil
}

// All returns every spec in a stable order.
func All() []Spec {
	out := make([]Spec, 0, len(order))
	for _, m := range order {
		out = append(out, table[m])
	}
	return out
}

// Keys is the expected key followed by its aliases.
func (s Spec) Keys() []string {
	return append([]string{s.Key}, s.Aliases...)
}

// Mutates reports whether a successful result changes the draft.
func (s Spec) Mutates() bool {
	return s.Target != "" || s.TargetList != ""
}

// ChangeReason tags the snapshot written after a successful generation.
func (s Spec) ChangeReason() string {
	return "AI generation: " + string(s.Mode)
}

// Check enforces the mode's preconditions against the current draft.
func Check(s Spec, e *types.ContentEntity) error {
	if e == nil {
		return fmt.Errorf("%w: %s requires an entity", types.ErrPreconditionFailed, s.Mode)
	}
	if s.RequireTitle && strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: %s requires a title", types.ErrPreconditionFailed, s.Mode)
	}
	for _, f := range s.Requires {
		if strings.TrimSpace(e.Text(f)) == "" {
			return fmt.Errorf("%w: %s requires %s to be populated", types.ErrPreconditionFailed, s.Mode, f)
		}
	}
	return nil
}
