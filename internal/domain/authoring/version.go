package authoring

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ContentVersion is an immutable snapshot of a ContentEntity. Only IsCurrent moves.
type ContentVersion struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EntityID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_content_version_entity_number,priority:1" json:"entity_id"`
	VersionNumber int       `gorm:"column:version_number;not null;uniqueIndex:idx_content_version_entity_number,priority:2" json:"version_number"`

	Title              string                         `gorm:"column:title;type:text;not null" json:"title"`
	FullText           string                         `gorm:"column:full_text;type:text" json:"full_text"`
	HighYield          string                         `gorm:"column:high_yield;type:text" json:"high_yield"`
	DeepDive           string                         `gorm:"column:deep_dive;type:text" json:"deep_dive"`
	LearningObjectives datatypes.JSONSlice[string]    `gorm:"column:learning_objectives" json:"learning_objectives"`
	SourcePack         datatypes.JSONType[SourcePack] `gorm:"column:source_pack" json:"source_pack"`
	Sources            datatypes.JSONSlice[string]    `gorm:"column:sources" json:"sources"`
	Warnings           datatypes.JSONSlice[string]    `gorm:"column:warnings" json:"warnings"`

	AIModel      string  `gorm:"column:ai_model;type:text" json:"ai_model,omitempty"`
	AIConfidence string  `gorm:"column:ai_confidence;type:text" json:"ai_confidence,omitempty"`
	AICost       float64 `gorm:"column:ai_cost;not null;default:0" json:"ai_cost"`

	ChangeReason string    `gorm:"column:change_reason;type:text;not null" json:"change_reason"`
	IsCurrent    bool      `gorm:"column:is_current;not null;default:false;index" json:"is_current"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ContentVersion) TableName() string { return "content_version" }

// SnapshotMeta is the AI provenance recorded alongside a snapshot.
type SnapshotMeta struct {
	Model      string
	Confidence ConfidenceLevel
	Cost       float64
}

// FieldIntegrity compares one text field before and after a save.
type FieldIntegrity struct {
	Field     Field `json:"field"`
	BeforeLen int   `json:"before_len"`
	AfterLen  int   `json:"after_len"`
	Shrunk    bool  `json:"shrunk"`
}

// IntegrityReport is returned with every save so callers can flag unexpected shrinkage.
type IntegrityReport struct {
	Fields []FieldIntegrity `json:"fields"`
	Shrunk bool             `json:"shrunk"`
}
