package model

import (
	"time"

	"github.com/doodlesbykumbi/credvault/pkg/access"
)

// Credential is the master record: classification, ownership and version.
// The typed fields live in exactly one payload record keyed by ID.
type Credential struct {
	ID          string         `gorm:"column:id;primaryKey"`
	Name        string         `gorm:"column:name;not null"`
	Description string         `gorm:"column:description"`
	Type        CredentialType `gorm:"column:type;type:text;not null"`
	Category    string         `gorm:"column:category;not null"`
	Environment string         `gorm:"column:environment;not null"`
	IsPersonal  bool           `gorm:"column:is_personal;not null"`
	OwnerID     string         `gorm:"column:owner_id;not null"`
	ExpiresAt   *time.Time     `gorm:"column:expires_at"`
	Version     int            `gorm:"column:version;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Credential) TableName() string {
	return "credentials"
}

// Target returns what the authorization guard needs to know about c.
func (c Credential) Target() access.Target {
	return access.Target{
		OwnerID:     c.OwnerID,
		IsPersonal:  c.IsPersonal,
		Category:    c.Category,
		Environment: c.Environment,
	}
}

// IsExpired returns true if the credential has an expiration time that has passed
func (c Credential) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return now.After(*c.ExpiresAt)
}

type Share struct {
	ID           string        `gorm:"column:id;primaryKey"`
	CredentialID string        `gorm:"column:credential_id;not null"`
	UserID       string        `gorm:"column:user_id;not null"`
	Permission   access.Action `gorm:"column:permission;type:text;not null"`
	GrantedBy    string        `gorm:"column:granted_by"`
	CreatedAt    time.Time
}

func (Share) TableName() string {
	return "shares"
}

type Setting struct {
	Key       string `gorm:"column:key;primaryKey"`
	Value     string `gorm:"column:value;not null"`
	UpdatedAt time.Time
}

func (Setting) TableName() string {
	return "settings"
}

// AuditLog is one row of the audit trail. CredentialID is nulled when the
// credential is deleted; CredentialName keeps the name it had at write time.
type AuditLog struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Action         string    `gorm:"column:action;not null"`
	ActorID        *string   `gorm:"column:actor_id"`
	ActorName      string    `gorm:"column:actor_name"`
	CredentialID   *string   `gorm:"column:credential_id"`
	CredentialName string    `gorm:"column:credential_name"`
	Change         []byte    `gorm:"column:change;type:jsonb"`
	SourceAddress  string    `gorm:"column:source_address"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
