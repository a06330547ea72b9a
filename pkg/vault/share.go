package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// ShareInput grants one user a permission on one credential.
type ShareInput struct {
	UserID     string        `json:"userId"`
	Permission access.Action `json:"permission"`
}

// ShareView is a recorded grant.
type ShareView struct {
	ID         string        `json:"id"`
	UserID     string        `json:"userId"`
	Permission access.Action `json:"permission"`
	GrantedBy  string        `json:"grantedBy,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func shareView(sh model.Share) ShareView {
	return ShareView{
		ID:         sh.ID,
		UserID:     sh.UserID,
		Permission: sh.Permission,
		GrantedBy:  sh.GrantedBy,
		CreatedAt:  sh.CreatedAt,
	}
}

// owned loads a credential for owner-or-admin operations.
func (s *Service) owned(ctx context.Context, caller Caller, id string) (*model.Credential, error) {
	cred, _, ac, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if caller.UserID != cred.OwnerID && !ac.IsAdmin {
		return nil, ErrUnauthorized
	}
	return cred, nil
}

// Share records a point grant on a non-personal credential. A second grant
// to the same user replaces the first. Grants are informational: the guard
// decides on category permissions alone.
func (s *Service) Share(ctx context.Context, caller Caller, id string, in ShareInput) (v *ShareView, err error) {
	defer s.observe("share", time.Now(), &err)

	cred, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if cred.IsPersonal {
		return nil, invalid("isPersonal", "personal credentials cannot be shared")
	}
	if !in.Permission.IsAAction() {
		return nil, invalid("permission", "is not a known action")
	}
	if in.UserID == "" {
		return nil, invalid("userId", "is required")
	}
	if _, err := s.users.FetchUser(ctx, in.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, invalid("userId", "does not exist")
		}
		return nil, s.internal("fetch user", err)
	}

	sh := &model.Share{
		ID:           s.newID(),
		CredentialID: cred.ID,
		UserID:       in.UserID,
		Permission:   in.Permission,
		GrantedBy:    caller.UserID,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.creds.CreateShare(ctx, sh); err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.internal("create share", err)
	}

	s.record(ctx, caller, audit.ActionShare, cred, audit.Scalar{
		Text: fmt.Sprintf("granted %s to %s", in.Permission, in.UserID),
	})
	view := shareView(*sh)
	return &view, nil
}

// Shares lists the grants on a credential the caller owns or administers.
func (s *Service) Shares(ctx context.Context, caller Caller, id string) (views []ShareView, err error) {
	defer s.observe("shares", time.Now(), &err)

	cred, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	shares, err := s.creds.ListShares(ctx, cred.ID)
	if err != nil {
		return nil, s.internal("list shares", err)
	}
	views = make([]ShareView, 0, len(shares))
	for _, sh := range shares {
		views = append(views, shareView(sh))
	}
	return views, nil
}
