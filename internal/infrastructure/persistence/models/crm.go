package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The CRM entity tables below are owned by the API layer; they appear
// here because the usage ledgers count and sum over them. All are
// tenant-scoped and soft-deleted, so ledger queries exclude rows whose
// deleted_at is set.

// ClientModel is the persistence model for CRM client accounts.
type ClientModel struct {
	BaseModel
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Name      string         `gorm:"type:varchar(200);not null"`
	Email     string         `gorm:"type:varchar(200)"`
	Phone     string         `gorm:"type:varchar(50)"`
	Company   string         `gorm:"type:varchar(200)"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// LeadModel is the persistence model for CRM sales leads.
type LeadModel struct {
	BaseModel
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Name      string         `gorm:"type:varchar(200);not null"`
	Email     string         `gorm:"type:varchar(200)"`
	Stage     string         `gorm:"type:varchar(50)"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (LeadModel) TableName() string {
	return "leads"
}

// ContactModel is the persistence model for CRM contacts.
type ContactModel struct {
	BaseModel
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	ClientID  *uuid.UUID     `gorm:"type:uuid;index"`
	Name      string         `gorm:"type:varchar(200);not null"`
	Email     string         `gorm:"type:varchar(200)"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ProjectModel is the persistence model for CRM projects.
type ProjectModel struct {
	BaseModel
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	ClientID  *uuid.UUID     `gorm:"type:uuid;index"`
	Name      string         `gorm:"type:varchar(200);not null"`
	Status    string         `gorm:"type:varchar(50)"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// InteractionModel is the persistence model for logged client interactions.
type InteractionModel struct {
	BaseModel
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	ClientID   *uuid.UUID     `gorm:"type:uuid;index"`
	Kind       string         `gorm:"type:varchar(50)"`
	Summary    string         `gorm:"type:text"`
	OccurredAt time.Time      `gorm:"index"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (InteractionModel) TableName() string {
	return "interactions"
}

// FileModel is the persistence model for uploaded files. SizeBytes
// feeds the storage ledger.
type FileModel struct {
	BaseModel
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Filename    string         `gorm:"type:varchar(500);not null"`
	ContentType string         `gorm:"type:varchar(200)"`
	SizeBytes   int64          `gorm:"not null;default:0"`
	StorageKey  string         `gorm:"type:varchar(500);not null"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (FileModel) TableName() string {
	return "files"
}
