package model

import (
	"time"

	"github.com/google/uuid"
)

type Thread struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	AssistantID *uuid.UUID `gorm:"type:uuid" json:"assistant_id"`
	CreatorID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"creator_id"`
	Title       string     `gorm:"type:text;not null;default:''" json:"title"`

	// Remote twin on the provider, created lazily on first dispatch.
	// Thread deletion is local-only; this identity is not reused.
	ProviderThreadID string `gorm:"type:text;not null;default:'';index" json:"provider_thread_id"`

	// Running totals rolled up from harvested run usage.
	PromptTokens     int `gorm:"not null;default:0" json:"prompt_tokens"`
	CompletionTokens int `gorm:"not null;default:0" json:"completion_tokens"`
	TotalTokens      int `gorm:"not null;default:0" json:"total_tokens"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Project   *Project   `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	Assistant *Assistant `gorm:"foreignKey:AssistantID;references:ID;constraint:OnDelete:SET NULL;" json:"-"`
	Creator   *User      `gorm:"foreignKey:CreatorID;references:ID" json:"-"`

	// Thread <-> Message
	Messages []Message `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Thread) TableName() string { return "threads" }
