package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole = string

const (
	RoleUserMessage      MessageRole = "user"
	RoleAssistantMessage MessageRole = "assistant"
)

// Message is immutable once created. Assistant messages are persisted by
// their provider message id; the unique index makes run harvesting
// idempotent.
type Message struct {
	ID       uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ThreadID uuid.UUID   `gorm:"type:uuid;not null;index;index:idx_thread_created,priority:1" json:"thread_id"`
	Role     MessageRole `gorm:"type:text;not null;check:role IN ('user','assistant')" json:"role"`
	Content  string      `gorm:"type:text;not null" json:"content"`

	ProviderMessageID *string `gorm:"type:text;uniqueIndex" json:"provider_message_id"`
	RunID             string  `gorm:"type:text;not null;default:'';index" json:"run_id"`

	PromptTokens     int `gorm:"not null;default:0" json:"prompt_tokens"`
	CompletionTokens int `gorm:"not null;default:0" json:"completion_tokens"`
	TotalTokens      int `gorm:"not null;default:0" json:"total_tokens"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP;index:idx_thread_created,priority:2" json:"created_at"`

	Thread *Thread `gorm:"foreignKey:ThreadID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Message) TableName() string { return "messages" }
