package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Configs key holding the assistant's custom instructions. Other keys are
// free-form and preserved across remote updates by the re-merge in the
// provisioner.
const AssistantConfigInstructions = "instructions"

// Assistant is the local record of the provider-hosted agent bound to a
// project's document index.
type Assistant struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProviderID string            `gorm:"type:text;not null;uniqueIndex" json:"provider_id"`
	Name       string            `gorm:"type:text;not null" json:"name"`
	Model      string            `gorm:"type:text;not null" json:"model"`
	Configs    datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"configs"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Assistant) TableName() string { return "assistants" }

// Instructions returns the custom instructions stored in Configs, if any.
func (a Assistant) Instructions() string {
	if a.Configs == nil {
		return ""
	}
	s, _ := a.Configs[AssistantConfigInstructions].(string)
	return s
}
