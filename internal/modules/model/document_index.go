package model

import (
	"time"

	"github.com/google/uuid"
)

// DocumentIndex is the local record of the provider-hosted searchable file
// store ("vector store") owned by at most one project.
type DocumentIndex struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProviderID string    `gorm:"type:text;not null;uniqueIndex" json:"provider_id"`
	Name       string    `gorm:"type:text;not null" json:"name"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DocumentIndex) TableName() string { return "document_indexes" }
