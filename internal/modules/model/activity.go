package model

import (
	"time"

	"github.com/google/uuid"
)

// Activity actions recorded by the audit log.
const (
	ActionProjectCreate    = "project.create"
	ActionProjectUpdate    = "project.update"
	ActionProjectDelete    = "project.delete"
	ActionProjectProvision = "project.ai_setup"
	ActionProjectTeardown  = "project.ai_teardown"
	ActionAssistantUpdate  = "assistant.update"
	ActionMemberAdd        = "member.add"
	ActionMemberUpdate     = "member.update"
	ActionMemberRemove     = "member.remove"
	ActionThreadCreate     = "thread.create"
	ActionThreadRename     = "thread.rename"
	ActionThreadDelete     = "thread.delete"
	ActionMessageSend      = "message.send"
	ActionFileUpload       = "file.upload"
	ActionFileDelete       = "file.delete"
	ActionRoleAssign       = "role.assign"
	ActionRoleRevoke       = "role.revoke"
)

// Entity types referenced by activity entries.
const (
	EntityProject   = "project"
	EntityAssistant = "assistant"
	EntityThread    = "thread"
	EntityMessage   = "message"
	EntityFile      = "file"
	EntityMember    = "member"
	EntityUser      = "user"
)

// ActivityLog is append-only; rows are never mutated.
type ActivityLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Action     string    `gorm:"type:text;not null" json:"action"`
	EntityType string    `gorm:"type:text;not null;index:idx_entity,priority:1" json:"entity_type"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_entity,priority:2" json:"entity_id"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
