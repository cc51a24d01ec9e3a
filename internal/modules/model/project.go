package model

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus = string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

type Project struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string        `gorm:"type:text;not null" json:"name"`
	Description string        `gorm:"type:text;not null;default:''" json:"description"`
	Status      ProjectStatus `gorm:"type:text;not null;default:'active';check:status IN ('active','completed','archived')" json:"status"`
	CreatorID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"creator_id"`

	// AI resource pair. At most one of each; both are provisioned together
	// from the caller's view, but either may be nil mid-resume after a
	// partial provisioning failure.
	DocumentIndexID *uuid.UUID `gorm:"type:uuid" json:"document_index_id"`
	AssistantID     *uuid.UUID `gorm:"type:uuid" json:"assistant_id"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Creator       *User          `gorm:"foreignKey:CreatorID;references:ID" json:"-"`
	DocumentIndex *DocumentIndex `gorm:"foreignKey:DocumentIndexID;references:ID;constraint:OnDelete:SET NULL;" json:"document_index,omitempty"`
	Assistant     *Assistant     `gorm:"foreignKey:AssistantID;references:ID;constraint:OnDelete:SET NULL;" json:"assistant,omitempty"`

	// Project <-> ProjectMember
	Members []ProjectMember `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Project <-> Thread
	Threads []Thread `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Project) TableName() string { return "projects" }

// IsClosed reports whether the project no longer accepts new threads.
func (p Project) IsClosed() bool {
	return p.Status == ProjectStatusArchived || p.Status == ProjectStatusCompleted
}

// IsProvisioned reports whether both halves of the AI resource pair exist.
func (p Project) IsProvisioned() bool {
	return p.DocumentIndexID != nil && p.AssistantID != nil
}
