// Package content stores the encrypted bytes of FILE credentials.
//
// Blobs are addressed by the SHA-256 of their ciphertext, so storing the same
// blob twice is safe. The vault keeps only the reference in the payload row.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned when no blob exists for a reference
var ErrNotFound = errors.New("content not found")

// ErrInvalidRef is returned for references that are not SHA-256 hex digests
var ErrInvalidRef = errors.New("invalid content reference")

// Store provides an interface for blob storage backends.
// All operations use io.Reader/io.Writer for streaming.
type Store interface {
	// Put stores content identified by ref. size is the number of bytes
	// that will be read from r.
	Put(ctx context.Context, ref string, r io.Reader, size int64) error

	// Get retrieves content by ref and writes it to w.
	Get(ctx context.Context, ref string, w io.Writer) error

	// Delete removes content. Deleting a missing blob is not an error.
	Delete(ctx context.Context, ref string) error

	// ValidateSetup verifies that the store is accessible.
	ValidateSetup(ctx context.Context) error
}

// Ref returns the reference for data.
func Ref(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidateRef checks that ref is a lowercase SHA-256 hex digest.
func ValidateRef(ref string) error {
	if len(ref) != sha256.Size*2 {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	for _, c := range ref {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
		}
	}
	return nil
}
