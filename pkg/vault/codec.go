package vault

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/doodlesbykumbi/credvault/pkg/cipher"
	"github.com/doodlesbykumbi/credvault/pkg/model"
)

// sealer turns payloads into encrypted records and back. Every secret field
// is bound to its credential and field name through the AAD, so ciphertext
// cannot be moved between records or fields.
type sealer struct {
	fields cipher.Cipher
}

func (s sealer) encrypt(id, field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	ct, err := s.fields.Encrypt(cipher.FieldAAD(id, field), []byte(value))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt %s: %w", field, err)
	}
	return ct, nil
}

// seal encrypts p into the payload record of credential id.
func (s sealer) seal(id string, p Payload) (model.PayloadRecord, error) {
	var (
		rec model.PayloadRecord
		err error
	)
	enc := func(field, value string) []byte {
		if err != nil {
			return nil
		}
		var ct []byte
		ct, err = s.encrypt(id, field, value)
		return ct
	}

	switch v := p.(type) {
	case *Password:
		rec = &model.PasswordPayload{
			Username: v.Username,
			Password: enc("password", v.Password),
			URL:      v.URL,
		}
	case *APIOAuth:
		rec = &model.APIOAuthPayload{
			ClientID:     v.ClientID,
			ClientSecret: enc("clientSecret", v.ClientSecret),
			APIKey:       enc("apiKey", v.APIKey),
			Endpoints:    pq.StringArray(v.Endpoints),
			Scopes:       pq.StringArray(v.Scopes),
		}
	case *KeyCert:
		rec = &model.KeyCertPayload{
			KeyType:    v.KeyType,
			KeyFormat:  v.KeyFormat,
			PublicKey:  v.PublicKey,
			PrivateKey: enc("privateKey", v.PrivateKey),
			Passphrase: enc("passphrase", v.Passphrase),
			ValidTo:    v.ValidTo,
		}
	case *Token:
		rec = &model.TokenPayload{
			Token:     enc("token", v.Token),
			TokenType: v.TokenType,
			Issuer:    v.Issuer,
			ExpiresAt: v.ExpiresAt,
		}
	case *SecureNote:
		rec = &model.SecureNotePayload{Note: enc("note", v.Note)}
	case *File:
		rec = &model.FilePayload{
			FileName:   v.FileName,
			FileType:   v.FileType,
			ContentRef: v.ContentRef,
			Size:       v.Size,
		}
	default:
		return nil, fmt.Errorf("unsupported payload %T", p)
	}
	if err != nil {
		return nil, err
	}
	rec.SetCredentialID(id)
	return rec, nil
}

// open decrypts rec. Each secret field is decrypted on its own; a failure
// leaves Placeholder in the field and an entry in the returned map.
func (s sealer) open(id string, rec model.PayloadRecord) (Payload, map[string]string) {
	failures := map[string]string{}
	dec := func(field string, ct []byte) string {
		if len(ct) == 0 {
			return ""
		}
		pt, err := s.fields.Decrypt(cipher.FieldAAD(id, field), ct)
		if err != nil {
			failures[field] = err.Error()
			return Placeholder
		}
		return string(pt)
	}

	var p Payload
	switch r := rec.(type) {
	case *model.PasswordPayload:
		p = &Password{
			Username: r.Username,
			Password: dec("password", r.Password),
			URL:      r.URL,
		}
	case *model.APIOAuthPayload:
		p = &APIOAuth{
			ClientID:     r.ClientID,
			ClientSecret: dec("clientSecret", r.ClientSecret),
			APIKey:       dec("apiKey", r.APIKey),
			Endpoints:    []string(r.Endpoints),
			Scopes:       []string(r.Scopes),
		}
	case *model.KeyCertPayload:
		p = &KeyCert{
			KeyType:    r.KeyType,
			KeyFormat:  r.KeyFormat,
			PublicKey:  r.PublicKey,
			PrivateKey: dec("privateKey", r.PrivateKey),
			Passphrase: dec("passphrase", r.Passphrase),
			ValidTo:    r.ValidTo,
		}
	case *model.TokenPayload:
		p = &Token{
			Token:     dec("token", r.Token),
			TokenType: r.TokenType,
			Issuer:    r.Issuer,
			ExpiresAt: r.ExpiresAt,
		}
	case *model.SecureNotePayload:
		p = &SecureNote{Note: dec("note", r.Note)}
	case *model.FilePayload:
		p = &File{
			FileName:   r.FileName,
			FileType:   r.FileType,
			ContentRef: r.ContentRef,
			Size:       r.Size,
		}
	default:
		failures["fields"] = fmt.Sprintf("unsupported payload record %T", rec)
		return nil, failures
	}
	if len(failures) == 0 {
		failures = nil
	}
	return p, failures
}

// publicOnly decodes the non-secret columns of rec without touching ciphertext.
func publicOnly(rec model.PayloadRecord) map[string]string {
	p, _ := sealer{fields: nullCipher{}}.open("", rec)
	if p == nil {
		return map[string]string{}
	}
	return p.public()
}

type nullCipher struct{}

func (nullCipher) Encrypt(aad, plainText []byte) ([]byte, error) {
	return nil, fmt.Errorf("unavailable")
}
func (nullCipher) Decrypt(aad, packedText []byte) ([]byte, error) {
	return nil, fmt.Errorf("unavailable")
}
