package modes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
)

func TestParse(t *testing.T) {
	tests := map[string]Mode{
		"fulltext":      FullText,
		"full_text":     FullText,
		"high-yield":    HighYield,
		" Deep-Dive ":   DeepDive,
		"exam-answer":   ExamAnswer,
		"review-critic": ReviewCritic,
		"quiz":          Quiz,
	}
	for in, want := range tests {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("poetry")
	assert.True(t, errors.Is(err, types.ErrUnknownMode))
}

func TestTableIsClosedAndConsistent(t *testing.T) {
	all := All()
	assert.Len(t, all, len(table))
	for _, s := range all {
		assert.NotEmpty(t, s.Key, s.Mode)
		assert.False(t, s.Target != "" && s.TargetList != "", "mode %s targets both a field and a list", s.Mode)
		if s.Kind == PayloadList {
			assert.NotEmpty(t, s.TargetList, s.Mode)
		}
	}

	spec, err := Lookup(HighYield)
	require.NoError(t, err)
	assert.Equal(t, types.FieldHighYield, spec.Target)
	assert.False(t, spec.WebAugmented)
	assert.Equal(t, "AI generation: high_yield", spec.ChangeReason())

	_, err = Lookup(Mode("nope"))
	assert.ErrorIs(t, err, types.ErrUnknownMode)
}

func TestCheckPreconditions(t *testing.T) {
	empty := &types.ContentEntity{Title: "Heart failure"}
	filled := &types.ContentEntity{Title: "Heart failure", FullText: "Body"}

	for _, m := range []Mode{HighYield, DeepDive, Simplify, LearningObjectives, Quiz, ReviewCritic} {
		spec, _ := Lookup(m)
		assert.ErrorIs(t, Check(spec, empty), types.ErrPreconditionFailed, m)
		assert.NoError(t, Check(spec, filled), m)
	}

	full, _ := Lookup(FullText)
	assert.NoError(t, Check(full, empty))
	assert.ErrorIs(t, Check(full, &types.ContentEntity{}), types.ErrPreconditionFailed)

	exam, _ := Lookup(ExamAnswer)
	assert.NoError(t, Check(exam, &types.ContentEntity{}))
	assert.ErrorIs(t, Check(exam, nil), types.ErrPreconditionFailed)
}

func TestMutates(t *testing.T) {
	for _, m := range []Mode{FullText, HighYield, DeepDive, Simplify, LearningObjectives} {
		spec, _ := Lookup(m)
		assert.True(t, spec.Mutates(), m)
	}
	for _, m := range []Mode{Quiz, ExamAnswer, ReviewCritic} {
		spec, _ := Lookup(m)
		assert.False(t, spec.Mutates(), m)
	}
}
