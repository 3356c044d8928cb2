// Package draft holds the scoped merge operations applied to a ContentEntity.
// Every operation names the fields it touches and leaves the rest alone, so merges
// on different fields commute.
package draft

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
)

// ShrinkFloor is the minimum previous length for which shrinkage is reported.
const ShrinkFloor = 200

// TextFields lists the body fields in display order.
var TextFields = []types.Field{types.FieldFullText, types.FieldHighYield, types.FieldDeepDive}

// Fields is the content-bearing projection of an entity or a version.
type Fields struct {
	Title              string
	FullText           string
	HighYield          string
	DeepDive           string
	LearningObjectives []string
	SourcePack         types.SourcePack
	Sources            []string
	Warnings           []string
}

func FieldsOf(e *types.ContentEntity) Fields {
	pack := e.Pack()
	return Fields{
		Title:              e.Title,
		FullText:           e.FullText,
		HighYield:          e.HighYield,
		DeepDive:           e.DeepDive,
		LearningObjectives: cloneStrings(e.LearningObjectives),
		SourcePack:         clonePack(pack),
		Sources:            cloneStrings(e.Sources),
		Warnings:           cloneStrings(e.Warnings),
	}
}

func VersionFields(v *types.ContentVersion) Fields {
	return Fields{
		Title:              v.Title,
		FullText:           v.FullText,
		HighYield:          v.HighYield,
		DeepDive:           v.DeepDive,
		LearningObjectives: cloneStrings(v.LearningObjectives),
		SourcePack:         clonePack(v.SourcePack.Data()),
		Sources:            cloneStrings(v.Sources),
		Warnings:           cloneStrings(v.Warnings),
	}
}

// Clone returns a deep copy; slices in the copy never alias the original.
func Clone(e *types.ContentEntity) *types.ContentEntity {
	if e == nil {
		return nil
	}
	c := *e
	c.LearningObjectives = cloneList(e.LearningObjectives)
	c.Sources = cloneList(e.Sources)
	c.Warnings = cloneList(e.Warnings)
	c.SourcePack = datatypes.NewJSONType(clonePack(e.Pack()))
	return &c
}

// MergeField replaces exactly one text field.
func MergeField(e *types.ContentEntity, f types.Field, value string) error {
	switch f {
	case types.FieldFullText:
		e.FullText = value
	case types.FieldHighYield:
		e.HighYield = value
	case types.FieldDeepDive:
		e.DeepDive = value
	default:
		return fmt.Errorf("merge: unknown field %q", f)
	}
	return nil
}

// MergeListAppend appends items to one list without deduplication.
func MergeListAppend(e *types.ContentEntity, key types.ListField, items []string) error {
	if len(items) == 0 {
		return nil
	}
	switch key {
	case types.ListLearningObjectives:
		e.LearningObjectives = append(cloneList(e.LearningObjectives), items...)
	case types.ListSources:
		e.Sources = append(cloneList(e.Sources), items...)
	case types.ListWarnings:
		e.Warnings = append(cloneList(e.Warnings), items...)
	case types.ListInternalRefs:
		pack := clonePack(e.Pack())
		pack.InternalRefs = append(pack.InternalRefs, items...)
		e.SourcePack = datatypes.NewJSONType(pack)
	case types.ListExternalRefs:
		pack := clonePack(e.Pack())
		pack.ExternalRefs = append(pack.ExternalRefs, items...)
		e.SourcePack = datatypes.NewJSONType(pack)
	default:
		return fmt.Errorf("merge: unknown list %q", key)
	}
	return nil
}

// ApplyResult performs the mode's scoped merge and folds the result's sources,
// warnings, citations and provenance into the entity. Modes without a target
// leave e untouched.
func ApplyResult(e *types.ContentEntity, spec modes.Spec, res *types.GenerationResult) error {
	if e == nil || res == nil {
		return fmt.Errorf("apply: nil entity or result")
	}
	if !spec.Mutates() {
		return nil
	}
	if spec.Target != "" {
		if strings.TrimSpace(res.Text) == "" {
			return fmt.Errorf("%w: empty %s", types.ErrMissingPayload, spec.Target)
		}
		if err := MergeField(e, spec.Target, res.Text); err != nil {
			return err
		}
	}
	if spec.TargetList != "" {
		if len(res.ListItems) == 0 {
			return fmt.Errorf("%w: empty %s", types.ErrMissingPayload, spec.TargetList)
		}
		if err := MergeListAppend(e, spec.TargetList, res.ListItems); err != nil {
			return err
		}
	}

	e.Sources = appendUnique(e.Sources, res.Sources)
	e.Warnings = appendUnique(e.Warnings, res.Warnings)
	if len(res.Citations.Internal) > 0 || len(res.Citations.External) > 0 {
		pack := clonePack(e.Pack())
		pack.InternalRefs = appendUnique(pack.InternalRefs, res.Citations.Internal)
		pack.ExternalRefs = appendUnique(pack.ExternalRefs, res.Citations.External)
		e.SourcePack = datatypes.NewJSONType(pack)
	}
	if res.Metadata.Model != "" {
		e.LastModelUsed = res.Metadata.Model
	}
	e.LastCost = res.Metadata.Cost.Total
	return nil
}

// Capture builds the snapshot row for e. VersionNumber and IsCurrent are assigned
// by the version log.
func Capture(e *types.ContentEntity, reason string, meta types.SnapshotMeta) *types.ContentVersion {
	return &types.ContentVersion{
		ID:                 uuid.New(),
		EntityID:           e.ID,
		Title:              e.Title,
		FullText:           e.FullText,
		HighYield:          e.HighYield,
		DeepDive:           e.DeepDive,
		LearningObjectives: cloneList(e.LearningObjectives),
		SourcePack:         datatypes.NewJSONType(clonePack(e.Pack())),
		Sources:            cloneList(e.Sources),
		Warnings:           cloneList(e.Warnings),
		AIModel:            meta.Model,
		AIConfidence:       string(meta.Confidence),
		AICost:             meta.Cost,
		ChangeReason:       reason,
	}
}

// RestoreFrom copies a snapshot's content back into the live draft. Status and
// provenance stay as they are.
func RestoreFrom(e *types.ContentEntity, v *types.ContentVersion) {
	e.Title = v.Title
	e.FullText = v.FullText
	e.HighYield = v.HighYield
	e.DeepDive = v.DeepDive
	e.LearningObjectives = cloneList(v.LearningObjectives)
	e.SourcePack = datatypes.NewJSONType(clonePack(v.SourcePack.Data()))
	e.Sources = cloneList(v.Sources)
	e.Warnings = cloneList(v.Warnings)
}

// CopyContent copies the authored fields of src into dst. Identity, status and
// provenance of dst are kept.
func CopyContent(dst, src *types.ContentEntity) {
	dst.Title = src.Title
	dst.Specialty = src.Specialty
	dst.ParentSection = src.ParentSection
	dst.FullText = src.FullText
	dst.HighYield = src.HighYield
	dst.DeepDive = src.DeepDive
	dst.LearningObjectives = cloneList(src.LearningObjectives)
	dst.SourcePack = datatypes.NewJSONType(clonePack(src.Pack()))
	dst.Sources = cloneList(src.Sources)
	dst.Warnings = cloneList(src.Warnings)
}

// Integrity compares the text fields that changed between before and after. A
// field has shrunk when its new length is under half of a previous length of at
// least ShrinkFloor characters.
func Integrity(before, after *types.ContentEntity) types.IntegrityReport {
	rep := types.IntegrityReport{Fields: []types.FieldIntegrity{}}
	for _, f := range TextFields {
		var prev string
		if before != nil {
			prev = before.Text(f)
		}
		next := after.Text(f)
		if prev == next {
			continue
		}
		fi := types.FieldIntegrity{
			Field:     f,
			BeforeLen: utf8.RuneCountInString(prev),
			AfterLen:  utf8.RuneCountInString(next),
		}
		fi.Shrunk = fi.BeforeLen >= ShrinkFloor && fi.AfterLen*2 < fi.BeforeLen
		if fi.Shrunk {
			rep.Shrunk = true
		}
		rep.Fields = append(rep.Fields, fi)
	}
	return rep
}

func appendUnique(dst []string, items []string) []string {
	if len(items) == 0 {
		return dst
	}
	seen := make(map[string]bool, len(dst)+len(items))
	out := make([]string, 0, len(dst)+len(items))
	for _, s := range dst {
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range items {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func cloneList(l datatypes.JSONSlice[string]) datatypes.JSONSlice[string] {
	if l == nil {
		return nil
	}
	return append(datatypes.JSONSlice[string]{}, l...)
}

func cloneStrings(l []string) []string {
	if l == nil {
		return nil
	}
	return append([]string{}, l...)
}

func clonePack(p types.SourcePack) types.SourcePack {
	return types.SourcePack{
		InternalRefs: cloneStrings(p.InternalRefs),
		ExternalRefs: cloneStrings(p.ExternalRefs),
	}
}
