package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Identifier string    `gorm:"type:text;not null;uniqueIndex" json:"identifier"`
	Name       string    `gorm:"type:text;not null;default:''" json:"name"`

	// API key credential: HMAC for indexed lookup, argon2id PHC for the
	// optional verification pass.
	APIKeyHMAC string `gorm:"column:api_key_hmac;type:text;not null;index" json:"-"`
	APIKeyPHC  string `gorm:"column:api_key_phc;type:text;not null" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// User <-> Role
	Roles []Role `gorm:"many2many:user_roles;" json:"-"`

	// User <-> ProjectMember
	Memberships []ProjectMember `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (User) TableName() string { return "users" }
