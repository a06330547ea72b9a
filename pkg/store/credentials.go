package store

import (
	"context"
	"errors"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/model"
)

// ErrCredentialNotFound is returned when a credential doesn't exist
var ErrCredentialNotFound = errors.New("credential not found")

// ErrVersionConflict is returned when an update's expected version is stale
var ErrVersionConflict = errors.New("credential version conflict")

// ErrPayloadMissing is returned when a master record has no payload row
var ErrPayloadMissing = errors.New("credential payload missing")

// Sortable credential columns.
var CredentialSortColumns = map[string]string{
	"name":        "name",
	"type":        "type",
	"category":    "category",
	"environment": "environment",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
}

// CredentialFilter narrows a credential listing. Visibility is always
// applied: owned records, plus non-personal records allowed by AllShared or
// matching one of Scopes.
type CredentialFilter struct {
	OwnerID   string
	AllShared bool
	Scopes    []access.Scope

	Query       string
	Type        *model.CredentialType
	Category    string
	Environment string

	SortBy     string
	Descending bool
	Limit      int
	Offset     int
}

// Visible reports whether c passes the visibility part of f.
func (f CredentialFilter) Visible(c model.Credential) bool {
	if f.OwnerID != "" && c.OwnerID == f.OwnerID {
		return true
	}
	if c.IsPersonal {
		return false
	}
	if f.AllShared {
		return true
	}
	for _, s := range f.Scopes {
		if (s.Category == access.Wildcard || s.Category == c.Category) &&
			(s.Environment == access.Wildcard || s.Environment == c.Environment) {
			return true
		}
	}
	return false
}

// CredentialsStore abstracts credential persistence. Every write that
// touches a master record and its payload is atomic.
type CredentialsStore interface {
	// CreateCredential inserts the master record and its payload in one transaction.
	CreateCredential(ctx context.Context, cred *model.Credential, payload model.PayloadRecord) error

	// FetchCredential loads a master record and its payload.
	// Returns ErrCredentialNotFound if the credential doesn't exist.
	FetchCredential(ctx context.Context, id string) (*model.Credential, model.PayloadRecord, error)

	// ListCredentials returns master records matching filter. Payloads are not loaded.
	ListCredentials(ctx context.Context, filter CredentialFilter) ([]model.Credential, error)

	// UpdateCredential replaces the master record and payload if the stored
	// version equals expectedVersion, and stores cred.Version as the new one.
	// Returns ErrVersionConflict otherwise.
	UpdateCredential(ctx context.Context, cred *model.Credential, expectedVersion int, payload model.PayloadRecord) error

	// DeleteCredential removes the master record, its payload and shares, and
	// nulls the credential reference of its audit rows, in one transaction.
	DeleteCredential(ctx context.Context, id string) error

	// CreateShare records a point grant.
	CreateShare(ctx context.Context, share *model.Share) error

	// ListShares returns the point grants of a credential.
	ListShares(ctx context.Context, credentialID string) ([]model.Share, error)
}
