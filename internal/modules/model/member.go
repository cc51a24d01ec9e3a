package model

import (
	"time"

	"github.com/google/uuid"
)

type ProjectRole = string

const (
	ProjectRoleMember  ProjectRole = "member"
	ProjectRoleManager ProjectRole = "manager"
	ProjectRoleAdmin   ProjectRole = "admin"
)

type ProjectMember struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID   `gorm:"type:uuid;not null;index;uniqueIndex:idx_project_user,priority:1" json:"project_id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;index;uniqueIndex:idx_project_user,priority:2" json:"user_id"`
	Role      ProjectRole `gorm:"type:text;not null;default:'member';check:role IN ('member','manager','admin')" json:"role"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	User    *User    `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"user,omitempty"`
}

func (ProjectMember) TableName() string { return "project_members" }

// IsElevated reports whether the membership role grants content and member
// management within the project.
func (m ProjectMember) IsElevated() bool {
	return m.Role == ProjectRoleManager || m.Role == ProjectRoleAdmin
}
