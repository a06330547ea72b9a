package cipher

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	fieldsInfo  = "credvault/fields/v1"
	contentInfo = "credvault/content/v1"
)

// Keyring holds the subkeys derived from the deployment data key.
type Keyring struct {
	// Fields seals secret credential fields.
	Fields Cipher
	// Content seals file payload blobs.
	Content Cipher
}

// NewKeyring derives the field and content ciphers from a 32 byte data key.
func NewKeyring(dataKey []byte) (*Keyring, error) {
	if len(dataKey) != KeySize {
		return nil, fmt.Errorf("data key must be %d bytes, got %d", KeySize, len(dataKey))
	}

	fields, err := derive(dataKey, fieldsInfo)
	if err != nil {
		return nil, err
	}
	content, err := derive(dataKey, contentInfo)
	if err != nil {
		return nil, err
	}

	return &Keyring{Fields: fields, Content: content}, nil
}

// NewKeyringFromBase64 decodes a base64 data key and derives a Keyring.
func NewKeyringFromBase64(encoded string) (*Keyring, error) {
	dataKey, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding data key: %w", err)
	}
	return NewKeyring(dataKey)
}

// DeriveKey expands dataKey into a subkey bound to info.
func DeriveKey(dataKey []byte, info string) ([]byte, error) {
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, dataKey, nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving %s key: %w", info, err)
	}
	return key, nil
}

func derive(dataKey []byte, info string) (*Symmetric, error) {
	key, err := DeriveKey(dataKey, info)
	if err != nil {
		return nil, err
	}
	return NewSymmetric(key)
}

// GenerateDataKey returns a new random data key, base64 encoded.
func GenerateDataKey() (string, error) {
	key, err := RandomBytes(KeySize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.Strict().EncodeToString(key), nil
}

// FieldAAD binds a secret field ciphertext to its credential and field name.
func FieldAAD(credentialID, field string) []byte {
	return []byte("credential/" + credentialID + "/" + field)
}

// ContentAAD binds a file blob ciphertext to its credential.
func ContentAAD(credentialID string) []byte {
	return []byte("content/" + credentialID)
}
