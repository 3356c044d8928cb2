package authoring

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusInReview  Status = "in_review"
	StatusPublished Status = "published"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusPublished:
		return true
	}
	return false
}

// CanTransition reports whether an explicit status action may move from s to to.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusDraft:
		return to == StatusInReview
	case StatusInReview:
		return to == StatusDraft || to == StatusPublished
	case StatusPublished:
		return to == StatusDraft
	}
	return false
}

// Field names a text body field of a ContentEntity.
type Field string

const (
	FieldFullText  Field = "full_text"
	FieldHighYield Field = "high_yield"
	FieldDeepDive  Field = "deep_dive"
)

// ListField names an ordered list of a ContentEntity.
type ListField string

const (
	ListLearningObjectives ListField = "learning_objectives"
	ListSources            ListField = "sources"
	ListWarnings           ListField = "warnings"
	ListInternalRefs       ListField = "source_pack.internal_refs"
	ListExternalRefs       ListField = "source_pack.external_refs"
)

type SourcePack struct {
	InternalRefs []string `json:"internal_refs"`
	ExternalRefs []string `json:"external_refs"`
}

// ContentEntity is the live draft of one authored section.
type ContentEntity struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title  string    `gorm:"column:title;type:text;not null" json:"title"`
	Status Status    `gorm:"column:status;type:text;not null;default:'draft';index" json:"status"`

	Specialty     string `gorm:"column:specialty;type:text" json:"specialty,omitempty"`
	ParentSection string `gorm:"column:parent_section;type:text" json:"parent_section,omitempty"`

	FullText  string `gorm:"column:full_text;type:text" json:"full_text"`
	HighYield string `gorm:"column:high_yield;type:text" json:"high_yield"`
	DeepDive  string `gorm:"column:deep_dive;type:text" json:"deep_dive"`

	LearningObjectives datatypes.JSONSlice[string]   `gorm:"column:learning_objectives" json:"learning_objectives"`
	SourcePack         datatypes.JSONType[SourcePack] `gorm:"column:source_pack" json:"source_pack"`
	Sources            datatypes.JSONSlice[string]   `gorm:"column:sources" json:"sources"`
	Warnings           datatypes.JSONSlice[string]   `gorm:"column:warnings" json:"warnings"`

	LastModelUsed string  `gorm:"column:last_model_used;type:text" json:"last_model_used,omitempty"`
	LastCost      float64 `gorm:"column:last_cost;not null;default:0" json:"last_cost"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ContentEntity) TableName() string { return "content_entity" }

// Text returns the body field named by f.
func (e *ContentEntity) Text(f Field) string {
	switch f {
	case FieldFullText:
		return e.FullText
	case FieldHighYield:
		return e.HighYield
	case FieldDeepDive:
		return e.DeepDive
	}
	return ""
}

func (e *ContentEntity) Pack() SourcePack {
	return e.SourcePack.Data()
}
