package vault

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/cipher"
	"github.com/doodlesbykumbi/credvault/pkg/content"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// CreateInput is a new credential. Fields must be the payload variant
// matching Type.
type CreateInput struct {
	Type model.CredentialType
	Classification
	Fields Payload
}

// CreateResult identifies the created credential.
type CreateResult struct {
	ID string `json:"id"`
}

// Create validates, authorizes, encrypts and stores a credential.
//
// Personal credentials may be created by any known user. Shared ones need
// CREATE on their category and environment.
func (s *Service) Create(ctx context.Context, caller Caller, in CreateInput) (res CreateResult, err error) {
	defer s.observe("create", time.Now(), &err)

	if caller.UserID == "" {
		return res, ErrUnauthorized
	}

	fields := in.Fields
	if f, ok := fields.(*File); ok {
		upload := *f
		upload.ContentRef = ""
		fields = &upload
	}
	if fields == nil {
		return res, invalid("fields", "is required")
	}
	if fields.Type() != in.Type {
		return res, invalid("type", "does not match fields")
	}
	if err := check(s.now(), in.Classification, fields, true); err != nil {
		return res, err
	}

	if in.IsPersonal {
		if _, err := s.users.FetchUser(ctx, caller.UserID); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return res, ErrUnauthorized
			}
			return res, s.internal("fetch user", err)
		}
	} else {
		ac, err := s.contextFor(ctx, caller)
		if err != nil {
			return res, err
		}
		if !access.CanAccess(ac, in.Category, in.Environment, access.ActionCreate) {
			return res, ErrUnauthorized
		}
	}

	id := s.newID()
	var blobRef string
	if f, ok := fields.(*File); ok {
		stored, err := s.putContent(ctx, id, f)
		if err != nil {
			return res, err
		}
		blobRef = stored.ContentRef
		fields = stored
	}

	rec, err := s.sealer.seal(id, fields)
	if err != nil {
		return res, s.internal("encrypt credential", err)
	}

	now := s.now().UTC()
	cred := &model.Credential{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		Category:    in.Category,
		Environment: in.Environment,
		IsPersonal:  in.IsPersonal,
		OwnerID:     caller.UserID,
		ExpiresAt:   in.ExpiresAt,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.creds.CreateCredential(ctx, cred, rec); err != nil {
		if blobRef != "" {
			s.removeContent(ctx, blobRef)
		}
		return res, s.internal("create credential", err)
	}

	s.record(ctx, caller, audit.ActionCreate, cred, audit.Snapshot{Values: snapshot(cred, fields.public())})
	return CreateResult{ID: id}, nil
}

// putContent encrypts the uploaded bytes of f and stores them. The returned
// payload carries the blob reference and plaintext size instead of the bytes.
func (s *Service) putContent(ctx context.Context, id string, f *File) (*File, error) {
	ct, err := s.keys.Content.Encrypt(cipher.ContentAAD(id), f.Content)
	if err != nil {
		return nil, s.internal("encrypt content", err)
	}
	ref := content.Ref(ct)
	if err := s.blobs.Put(ctx, ref, bytes.NewReader(ct), int64(len(ct))); err != nil {
		return nil, s.internal("store content", err)
	}

	stored := *f
	stored.ContentRef = ref
	stored.Size = int64(len(f.Content))
	stored.Content = nil
	return &stored, nil
}

func (s *Service) removeContent(ctx context.Context, ref string) {
	if err := s.blobs.Delete(ctx, ref); err != nil {
		s.log.WithError(err).WithField("ref", ref).Warn("failed to remove content blob")
	}
}
