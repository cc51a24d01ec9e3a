package model

import (
	"time"

	"github.com/google/uuid"
)

// AssociableType is the discriminant of a FileAssociation. The discriminant
// value to referenced-table pairing is enforced in the ingestion service;
// the column itself carries no foreign key.
type AssociableType = string

const (
	AssociableProject   AssociableType = "project"
	AssociableAssistant AssociableType = "assistant"
	AssociableThread    AssociableType = "thread"
	AssociableMessage   AssociableType = "message"
)

type File struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string    `gorm:"type:text;not null" json:"name"`
	MIME       string    `gorm:"column:mime;type:text;not null" json:"mime"`
	SizeB      int64     `gorm:"column:size_bigint;type:bigint;not null" json:"size"`
	UploaderID uuid.UUID `gorm:"type:uuid;not null;index" json:"uploader_id"`

	// Remote identity on the provider's file store.
	ProviderFileID string `gorm:"type:text;not null;default:'';index" json:"provider_file_id"`

	// Durable copy of the original bytes.
	Bucket string `gorm:"type:text;not null;default:''" json:"-"`
	S3Key  string `gorm:"column:s3_key;type:text;not null;default:''" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Uploader *User `gorm:"foreignKey:UploaderID;references:ID" json:"-"`

	// File <-> FileAssociation
	Associations []FileAssociation `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (File) TableName() string { return "files" }

// FileAssociation links a File to whichever entity it is attached to. A File
// with zero associations is garbage and is deleted by the operation that
// removed its last association.
type FileAssociation struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FileID         uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_file_associable,priority:1" json:"file_id"`
	AssociableType AssociableType `gorm:"type:text;not null;uniqueIndex:idx_file_associable,priority:2;check:associable_type IN ('project','assistant','thread','message')" json:"associable_type"`
	AssociableID   uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_file_associable,priority:3" json:"associable_id"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	File *File `gorm:"foreignKey:FileID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (FileAssociation) TableName() string { return "file_associations" }
