package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/cipher"
	"github.com/doodlesbykumbi/credvault/pkg/content"
	"github.com/doodlesbykumbi/credvault/pkg/metrics"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// Auditor receives audit entries after a successful operation.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// Caller identifies who is asking and from where.
type Caller struct {
	UserID        string
	SourceAddress string
}

// Options wires a Service. Credentials, Users and Keys are required.
type Options struct {
	Credentials store.CredentialsStore
	Users       store.MembershipsStore
	Keys        *cipher.Keyring
	Content     content.Store
	Audit       Auditor
	Log         logrus.FieldLogger
	Clock       func() time.Time

	// ListLimitDefault applies when a listing asks for no limit;
	// ListLimitMax caps every listing.
	ListLimitDefault int
	ListLimitMax     int
}

// Service implements the credential operations.
type Service struct {
	creds   store.CredentialsStore
	users   store.MembershipsStore
	access  *access.Builder
	sealer  sealer
	keys    *cipher.Keyring
	blobs   content.Store
	auditor Auditor
	log     logrus.FieldLogger
	now     func() time.Time
	newID   func() string

	listLimitDefault int
	listLimitMax     int
}

// NewService creates a Service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.Credentials == nil || opts.Users == nil {
		return nil, errors.New("vault: credential and membership stores are required")
	}
	if opts.Keys == nil || opts.Keys.Fields == nil || opts.Keys.Content == nil {
		return nil, errors.New("vault: keyring is required")
	}

	s := &Service{
		creds:            opts.Credentials,
		users:            opts.Users,
		access:           access.NewBuilder(opts.Users),
		sealer:           sealer{fields: opts.Keys.Fields},
		keys:             opts.Keys,
		blobs:            opts.Content,
		auditor:          opts.Audit,
		log:              opts.Log,
		now:              opts.Clock,
		newID:            uuid.NewString,
		listLimitDefault: opts.ListLimitDefault,
		listLimitMax:     opts.ListLimitMax,
	}
	if s.blobs == nil {
		s.blobs = content.NewMemoryStore()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.log = s.log.WithField("component", "vault")
	if s.now == nil {
		s.now = time.Now
	}
	if s.listLimitMax <= 0 {
		s.listLimitMax = 500
	}
	if s.listLimitDefault <= 0 || s.listLimitDefault > s.listLimitMax {
		s.listLimitDefault = s.listLimitMax
	}
	return s, nil
}

// Summary is the non-secret view of a credential.
type Summary struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Type        model.CredentialType `json:"type"`
	Category    string               `json:"category"`
	Environment string               `json:"environment"`
	IsPersonal  bool                 `json:"isPersonal"`
	OwnerID     string               `json:"ownerId"`
	ExpiresAt   *time.Time           `json:"expiresAt,omitempty"`
	Expired     bool                 `json:"expired"`
	Version     int                  `json:"version"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// Detail is a credential with its decrypted payload. FieldErrors names the
// secret fields that could not be decrypted.
type Detail struct {
	Summary
	Fields      Payload           `json:"fields"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func (s *Service) summarize(c *model.Credential) Summary {
	return Summary{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Type:        c.Type,
		Category:    c.Category,
		Environment: c.Environment,
		IsPersonal:  c.IsPersonal,
		OwnerID:     c.OwnerID,
		ExpiresAt:   c.ExpiresAt,
		Expired:     c.IsExpired(s.now()),
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func classificationOf(c *model.Credential) Classification {
	return Classification{
		Name:        c.Name,
		Description: c.Description,
		Category:    c.Category,
		Environment: c.Environment,
		IsPersonal:  c.IsPersonal,
		ExpiresAt:   c.ExpiresAt,
	}
}

// snapshot lists the non-secret values of a credential for the audit trail.
func snapshot(c *model.Credential, public map[string]string) map[string]string {
	values := map[string]string{
		"name":        c.Name,
		"description": c.Description,
		"type":        c.Type.String(),
		"category":    c.Category,
		"environment": c.Environment,
		"isPersonal":  fmt.Sprint(c.IsPersonal),
		"expiresAt":   formatTime(c.ExpiresAt),
	}
	for k, v := range public {
		values[k] = v
	}
	for k, v := range values {
		if v == "" {
			delete(values, k)
		}
	}
	return values
}

func (s *Service) record(ctx context.Context, caller Caller, action audit.Action, c *model.Credential, change audit.Change) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		Action:         action,
		ActorID:        caller.UserID,
		CredentialID:   c.ID,
		CredentialName: c.Name,
		Personal:       c.IsPersonal,
		Change:         change,
		SourceAddress:  caller.SourceAddress,
	})
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	metrics.RecordVaultOperation(operation, outcome(*err), time.Since(start))
}

// internal logs a storage failure and wraps it.
func (s *Service) internal(operation string, err error) error {
	s.log.WithError(err).WithField("operation", operation).Error("vault operation failed")
	return fmt.Errorf("%s: %w", operation, err)
}

func (s *Service) contextFor(ctx context.Context, caller Caller) (access.Context, error) {
	ac, err := s.access.Build(ctx, caller.UserID)
	if err != nil {
		return ac, s.internal("load access context", err)
	}
	return ac, nil
}

func (s *Service) load(ctx context.Context, id string) (*model.Credential, model.PayloadRecord, error) {
	cred, rec, err := s.creds.FetchCredential(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, s.internal("fetch credential", err)
	}
	return cred, rec, nil
}
