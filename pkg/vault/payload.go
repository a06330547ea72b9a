package vault

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/doodlesbykumbi/credvault/pkg/model"
)

// Placeholder replaces a secret field that could not be decrypted.
const Placeholder = "[decryption failed]"

// Redacted stands in for secret values in audit diffs.
const Redacted = "[redacted]"

// Payload is the typed content of a credential. It is implemented only by
// the six variant structs of this package.
type Payload interface {
	Type() model.CredentialType
	// public returns the non-secret values keyed by JSON field name.
	public() map[string]string
	// secrets returns the secret values keyed by JSON field name.
	secrets() map[string]string
	// setSecret replaces the named secret value.
	setSecret(field, value string)
}

// Password is a login for a service; only the password is secret.
type Password struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=4096"`
	URL      string `json:"url,omitempty" validate:"omitempty,url,max=2048"`
}

// APIOAuth holds an API key or an OAuth client pair.
type APIOAuth struct {
	ClientID     string   `json:"clientId,omitempty" validate:"max=255"`
	ClientSecret string   `json:"clientSecret,omitempty" validate:"max=4096"`
	APIKey       string   `json:"apiKey,omitempty" validate:"max=4096"`
	Endpoints    []string `json:"endpoints,omitempty" validate:"omitempty,dive,url"`
	Scopes       []string `json:"scopes,omitempty" validate:"omitempty,dive,required,max=255"`
}

// KeyCert is a key pair or certificate; the private key and passphrase are secret.
type KeyCert struct {
	KeyType    string     `json:"keyType" validate:"required,oneof=RSA EC ED25519 DSA X509 SSH"`
	KeyFormat  string     `json:"keyFormat,omitempty" validate:"omitempty,oneof=PEM DER OPENSSH PKCS8 PKCS12"`
	PublicKey  string     `json:"publicKey,omitempty" validate:"max=16384"`
	PrivateKey string     `json:"privateKey" validate:"required,max=16384"`
	Passphrase string     `json:"passphrase,omitempty" validate:"max=1024"`
	ValidTo    *time.Time `json:"validTo,omitempty"`
}

// Token is an access token with its optional issuer and expiry.
type Token struct {
	Token     string     `json:"token" validate:"required,max=8192"`
	TokenType string     `json:"tokenType,omitempty" validate:"omitempty,oneof=bearer jwt pat refresh session other"`
	Issuer    string     `json:"issuer,omitempty" validate:"max=255"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// SecureNote is free text stored encrypted.
type SecureNote struct {
	Note string `json:"note" validate:"required,max=65536"`
}

// File describes an uploaded blob. Content is accepted on input only; the
// stored payload keeps the reference of the encrypted blob.
type File struct {
	FileName   string `json:"fileName" validate:"required,max=255"`
	FileType   string `json:"fileType,omitempty" validate:"max=255"`
	Size       int64  `json:"size"`
	ContentRef string `json:"contentRef,omitempty"`
	Content    []byte `json:"content,omitempty"`
}

func (*Password) Type() model.CredentialType   { return model.CredentialTypePassword }
func (*APIOAuth) Type() model.CredentialType   { return model.CredentialTypeAPIOAuth }
func (*KeyCert) Type() model.CredentialType    { return model.CredentialTypeKeyCert }
func (*Token) Type() model.CredentialType      { return model.CredentialTypeToken }
func (*SecureNote) Type() model.CredentialType { return model.CredentialTypeSecureNote }
func (*File) Type() model.CredentialType       { return model.CredentialTypeFile }

func (p *Password) public() map[string]string {
	return map[string]string{"username": p.Username, "url": p.URL}
}

func (p *Password) secrets() map[string]string {
	return map[string]string{"password": p.Password}
}

func (p *Password) setSecret(field, value string) {
	if field == "password" {
		p.Password = value
	}
}

func (p *APIOAuth) public() map[string]string {
	return map[string]string{
		"clientId":  p.ClientID,
		"endpoints": strings.Join(p.Endpoints, ","),
		"scopes":    strings.Join(p.Scopes, ","),
	}
}

func (p *APIOAuth) secrets() map[string]string {
	return map[string]string{"clientSecret": p.ClientSecret, "apiKey": p.APIKey}
}

func (p *APIOAuth) setSecret(field, value string) {
	switch field {
	case "clientSecret":
		p.ClientSecret = value
	case "apiKey":
		p.APIKey = value
	}
}

func (p *KeyCert) public() map[string]string {
	return map[string]string{
		"keyType":   p.KeyType,
		"keyFormat": p.KeyFormat,
		"publicKey": p.PublicKey,
		"validTo":   formatTime(p.ValidTo),
	}
}

func (p *KeyCert) secrets() map[string]string {
	return map[string]string{"privateKey": p.PrivateKey, "passphrase": p.Passphrase}
}

func (p *KeyCert) setSecret(field, value string) {
	switch field {
	case "privateKey":
		p.PrivateKey = value
	case "passphrase":
		p.Passphrase = value
	}
}

func (p *Token) public() map[string]string {
	return map[string]string{
		"tokenType": p.TokenType,
		"issuer":    p.Issuer,
		"expiresAt": formatTime(p.ExpiresAt),
	}
}

func (p *Token) secrets() map[string]string {
	return map[string]string{"token": p.Token}
}

func (p *Token) setSecret(field, value string) {
	if field == "token" {
		p.Token = value
	}
}

func (p *SecureNote) public() map[string]string {
	return map[string]string{}
}

func (p *SecureNote) secrets() map[string]string {
	return map[string]string{"note": p.Note}
}

func (p *SecureNote) setSecret(field, value string) {
	if field == "note" {
		p.Note = value
	}
}

func (p *File) public() map[string]string {
	return map[string]string{
		"fileName":   p.FileName,
		"fileType":   p.FileType,
		"size":       strconv.FormatInt(p.Size, 10),
		"contentRef": p.ContentRef,
	}
}

func (p *File) secrets() map[string]string {
	return map[string]string{}
}

func (p *File) setSecret(string, string) {}

// NewPayload returns an empty payload of type t.
func NewPayload(t model.CredentialType) (Payload, error) {
	switch t {
	case model.CredentialTypePassword:
		return &Password{}, nil
	case model.CredentialTypeAPIOAuth:
		return &APIOAuth{}, nil
	case model.CredentialTypeKeyCert:
		return &KeyCert{}, nil
	case model.CredentialTypeToken:
		return &Token{}, nil
	case model.CredentialTypeSecureNote:
		return &SecureNote{}, nil
	case model.CredentialTypeFile:
		return &File{}, nil
	}
	return nil, fmt.Errorf("unknown credential type %s", t)
}

// DecodePayload decodes the JSON fields of a payload of type t.
func DecodePayload(t model.CredentialType, data []byte) (Payload, error) {
	p, err := NewPayload(t)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("invalid %s fields: %w", t, err)
	}
	return p, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
