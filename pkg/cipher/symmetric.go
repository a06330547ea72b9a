package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

const ivSize = 12
const tagSize = aes.BlockSize
const versionMagic = byte('G')

// KeySize is the size in bytes of data keys and derived subkeys.
const KeySize = 32

var (
	// ErrCiphertextTooShort is returned when a packed value cannot hold a tag and iv.
	ErrCiphertextTooShort = errors.New("ciphertext is too short")
	// ErrUnknownVersion is returned when a packed value has an unexpected magic byte.
	ErrUnknownVersion = errors.New("unknown ciphertext version")
)

// Cipher seals and opens values bound to additional authenticated data.
type Cipher interface {
	Decrypt(aad, packedText []byte) ([]byte, error)
	Encrypt(aad, plainText []byte) ([]byte, error)
}

// Symmetric is an AES-GCM Cipher.
type Symmetric struct {
	aesgcm stdcipher.AEAD
}

// NewSymmetric creates a Cipher from a 16, 24 or 32 byte key.
func NewSymmetric(key []byte) (*Symmetric, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := stdcipher.NewGCM(c)
	if err != nil {
		return nil, err
	}

	return &Symmetric{aesgcm: aesgcm}, nil
}

func (s *Symmetric) Decrypt(aad, packedText []byte) ([]byte, error) {
	cipherText, iv, err := UnpackCipherData(packedText)
	if err != nil {
		return nil, err
	}

	return s.aesgcm.Open(nil, iv, cipherText, aad)
}

func (s *Symmetric) Encrypt(aad, plainText []byte) ([]byte, error) {
	nonce, err := RandomNonce()
	if err != nil {
		return nil, err
	}

	return s.encrypt(aad, plainText, nonce)
}

func (s *Symmetric) encrypt(aad, plainText, nonce []byte) ([]byte, error) {
	if len(nonce) < ivSize {
		return nil, errors.New("nonce size is too short")
	}

	cipherTextWithTag := s.aesgcm.Seal(nil, nonce, plainText, aad)
	return PackCipherData(cipherTextWithTag, nonce), nil
}

// RandomNonce returns a fresh GCM nonce.
func RandomNonce() ([]byte, error) {
	// Never use more than 2^32 random nonces with a given key because of
	// the risk of a repeat.
	return RandomBytes(ivSize)
}

// RandomBytes reads size bytes from the system CSPRNG.
func RandomBytes(size int) ([]byte, error) {
	value := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, value); err != nil {
		return nil, err
	}

	return value, nil
}

// PackCipherData lays out a sealed value as 'G' | tag | iv | ciphertext.
func PackCipherData(cipherTextWithTag []byte, iv []byte) []byte {
	iv = iv[:ivSize]

	tagStartIndex := len(cipherTextWithTag) - tagSize
	tag := cipherTextWithTag[tagStartIndex:]
	cipherText := cipherTextWithTag[:tagStartIndex]

	data := make([]byte, 1+tagSize+ivSize+len(cipherText))
	data[0] = versionMagic
	index := 1

	copy(data[index:], tag)
	index += tagSize

	copy(data[index:], iv)
	index += ivSize

	copy(data[index:], cipherText)

	return data
}

// UnpackCipherData splits a packed value into ciphertext-with-tag and iv.
func UnpackCipherData(packedText []byte) ([]byte, []byte, error) {
	if len(packedText) < 1+tagSize+ivSize {
		return nil, nil, ErrCiphertextTooShort
	}
	if packedText[0] != versionMagic {
		return nil, nil, ErrUnknownVersion
	}

	index := 1
	tag := packedText[index : index+tagSize]
	index += tagSize

	iv := packedText[index : index+ivSize]
	index += ivSize

	cipherText := make([]byte, 0, len(packedText)-index+tagSize)
	cipherText = append(cipherText, packedText[index:]...)
	cipherText = append(cipherText, tag...)

	return cipherText, iv, nil
}
