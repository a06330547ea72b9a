package model

import (
	"time"

	"github.com/lib/pq"
)

// PayloadRecord is one of the six typed payload tables.
type PayloadRecord interface {
	TableName() string
	CredentialType() CredentialType
	SetCredentialID(id string)
}

// NewPayloadRecord returns an empty record for t, or nil for unknown types.
func NewPayloadRecord(t CredentialType) PayloadRecord {
	switch t {
	case CredentialTypePassword:
		return &PasswordPayload{}
	case CredentialTypeAPIOAuth:
		return &APIOAuthPayload{}
	case CredentialTypeKeyCert:
		return &KeyCertPayload{}
	case CredentialTypeToken:
		return &TokenPayload{}
	case CredentialTypeSecureNote:
		return &SecureNotePayload{}
	case CredentialTypeFile:
		return &FilePayload{}
	}
	return nil
}

// PayloadTables lists every payload table.
func PayloadTables() []string {
	tables := make([]string, 0, len(CredentialTypeValues()))
	for _, t := range CredentialTypeValues() {
		tables = append(tables, NewPayloadRecord(t).TableName())
	}
	return tables
}

type PasswordPayload struct {
	CredentialID string `gorm:"column:credential_id;primaryKey"`
	Username     string `gorm:"column:username"`
	Password     []byte `gorm:"column:password;type:bytea"`
	URL          string `gorm:"column:url"`
}

func (PasswordPayload) TableName() string              { return "password_payloads" }
func (PasswordPayload) CredentialType() CredentialType { return CredentialTypePassword }
func (p *PasswordPayload) SetCredentialID(id string)   { p.CredentialID = id }

type APIOAuthPayload struct {
	CredentialID string         `gorm:"column:credential_id;primaryKey"`
	ClientID     string         `gorm:"column:client_id"`
	ClientSecret []byte         `gorm:"column:client_secret;type:bytea"`
	APIKey       []byte         `gorm:"column:api_key;type:bytea"`
	Endpoints    pq.StringArray `gorm:"column:endpoints;type:text[]"`
	Scopes       pq.StringArray `gorm:"column:scopes;type:text[]"`
}

func (APIOAuthPayload) TableName() string              { return "api_oauth_payloads" }
func (APIOAuthPayload) CredentialType() CredentialType { return CredentialTypeAPIOAuth }
func (p *APIOAuthPayload) SetCredentialID(id string)   { p.CredentialID = id }

type KeyCertPayload struct {
	CredentialID string     `gorm:"column:credential_id;primaryKey"`
	KeyType      string     `gorm:"column:key_type"`
	KeyFormat    string     `gorm:"column:key_format"`
	PublicKey    string     `gorm:"column:public_key"`
	PrivateKey   []byte     `gorm:"column:private_key;type:bytea"`
	Passphrase   []byte     `gorm:"column:passphrase;type:bytea"`
	ValidTo      *time.Time `gorm:"column:valid_to"`
}

func (KeyCertPayload) TableName() string              { return "key_cert_payloads" }
func (KeyCertPayload) CredentialType() CredentialType { return CredentialTypeKeyCert }
func (p *KeyCertPayload) SetCredentialID(id string)   { p.CredentialID = id }

type TokenPayload struct {
	CredentialID string     `gorm:"column:credential_id;primaryKey"`
	Token        []byte     `gorm:"column:token;type:bytea"`
	TokenType    string     `gorm:"column:token_type"`
	Issuer       string     `gorm:"column:issuer"`
	ExpiresAt    *time.Time `gorm:"column:expires_at"`
}

func (TokenPayload) TableName() string              { return "token_payloads" }
func (TokenPayload) CredentialType() CredentialType { return CredentialTypeToken }
func (p *TokenPayload) SetCredentialID(id string)   { p.CredentialID = id }

type SecureNotePayload struct {
	CredentialID string `gorm:"column:credential_id;primaryKey"`
	Note         []byte `gorm:"column:note;type:bytea"`
}

func (SecureNotePayload) TableName() string              { return "secure_note_payloads" }
func (SecureNotePayload) CredentialType() CredentialType { return CredentialTypeSecureNote }
func (p *SecureNotePayload) SetCredentialID(id string)   { p.CredentialID = id }

type FilePayload struct {
	CredentialID string `gorm:"column:credential_id;primaryKey"`
	FileName     string `gorm:"column:file_name"`
	FileType     string `gorm:"column:file_type"`
	ContentRef   string `gorm:"column:content_ref"`
	Size         int64  `gorm:"column:size"`
}

func (FilePayload) TableName() string              { return "file_payloads" }
func (FilePayload) CredentialType() CredentialType { return CredentialTypeFile }
func (p *FilePayload) SetCredentialID(id string)   { p.CredentialID = id }
