package vault

import (
	"context"
	"errors"
	"time"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// Delete removes a credential with its payload, shares and stored content.
// Only the owner, or an administrator for a shared credential, may delete.
// Personal credentials of other users are reported as not found.
// Audit entries that referenced the credential are kept.
func (s *Service) Delete(ctx context.Context, caller Caller, id string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	cred, rec, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	target := cred.Target()
	if target.IsPersonal && caller.UserID != target.OwnerID {
		return ErrNotFound
	}
	ac, err := s.contextFor(ctx, caller)
	if err != nil {
		return err
	}
	if !access.CanDelete(ac, caller.UserID, target) {
		return ErrUnauthorized
	}

	if err := s.creds.DeleteCredential(ctx, id); err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			return ErrNotFound
		}
		return s.internal("delete credential", err)
	}

	// The row is gone; the entry keeps only its name.
	gone := *cred
	gone.ID = ""
	s.record(ctx, caller, audit.ActionDelete, &gone, audit.Snapshot{Values: snapshot(cred, publicOnly(rec))})

	if f, ok := rec.(*model.FilePayload); ok && f.ContentRef != "" {
		s.removeContent(ctx, f.ContentRef)
	}
	return nil
}
