package vault

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a credential doesn't exist or the caller may not see it
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned when a visible credential may not be changed by the caller
var ErrUnauthorized = errors.New("unauthorized")

// ErrVersionConflict is returned when an update carries a stale version
var ErrVersionConflict = errors.New("version conflict")

// ErrUndecryptable is returned when stored ciphertext cannot be opened and
// the operation cannot proceed without it
var ErrUndecryptable = errors.New("stored secret cannot be decrypted")

// ValidationError maps input field names to problems. Nothing is written
// when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return "invalid credential: " + strings.Join(parts, "; ")
}

func invalid(field, problem string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: problem}}
}

// outcome labels an operation result for metrics.
func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrVersionConflict):
		return "conflict"
	case errors.Is(err, ErrUndecryptable):
		return "undecryptable"
	case errors.As(err, &verr):
		return "invalid"
	}
	return "error"
}
