package vault

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// UpdateInput changes a credential. Nil fields are left alone. Fields
// replaces the payload; a secret left empty in it keeps its stored value,
// and FILE content is only replaced when new bytes are given.
type UpdateInput struct {
	ExpectedVersion int
	Name            *string
	Description     *string
	Category        *string
	Environment     *string
	IsPersonal      *bool
	ExpiresAt       *time.Time
	ClearExpiresAt  bool
	Fields          Payload
}

func (in UpdateInput) apply(c *model.Credential) {
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Category != nil {
		c.Category = *in.Category
	}
	if in.Environment != nil {
		c.Environment = *in.Environment
	}
	if in.IsPersonal != nil {
		c.IsPersonal = *in.IsPersonal
	}
	if in.ClearExpiresAt {
		c.ExpiresAt = nil
	} else if in.ExpiresAt != nil {
		c.ExpiresAt = in.ExpiresAt
	}
}

// Update merges in into a credential the caller may edit. The stored version
// must equal in.ExpectedVersion; on success it is incremented.
func (s *Service) Update(ctx context.Context, caller Caller, id string, in UpdateInput) (d *Detail, err error) {
	defer s.observe("update", time.Now(), &err)

	if in.ExpectedVersion <= 0 {
		return nil, invalid("version", "is required")
	}

	cred, rec, ac, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !access.CanModify(ac, caller.UserID, cred.Target(), access.ActionEdit) {
		return nil, ErrUnauthorized
	}
	if in.ExpectedVersion != cred.Version {
		return nil, ErrVersionConflict
	}

	next := *cred
	in.apply(&next)
	if next.Target() != cred.Target() && !access.CanModify(ac, caller.UserID, next.Target(), access.ActionEdit) {
		return nil, ErrUnauthorized
	}

	current, failures, err := s.decrypt(cred, rec)
	if err != nil {
		return nil, err
	}

	fields := current
	nextRec := rec
	var newBlob, oldBlob string
	if in.Fields != nil {
		if in.Fields.Type() != cred.Type {
			return nil, invalid("type", "cannot be changed")
		}
		fields, err = mergeFields(in.Fields, current, failures)
		if err != nil {
			return nil, err
		}
	}

	expiryChanged := in.ExpiresAt != nil && !in.ClearExpiresAt
	if err := check(s.now(), classificationOf(&next), fields, expiryChanged); err != nil {
		return nil, err
	}

	if in.Fields != nil {
		if f, ok := fields.(*File); ok && len(f.Content) > 0 {
			stored, err := s.putContent(ctx, id, f)
			if err != nil {
				return nil, err
			}
			fields = stored
			if prev := current.(*File).ContentRef; prev != stored.ContentRef {
				newBlob, oldBlob = stored.ContentRef, prev
			}
		}
		if nextRec, err = s.sealer.seal(id, fields); err != nil {
			return nil, s.internal("encrypt credential", err)
		}
	}

	next.Version = cred.Version + 1
	next.UpdatedAt = s.now().UTC()
	if err := s.creds.UpdateCredential(ctx, &next, in.ExpectedVersion, nextRec); err != nil {
		if newBlob != "" {
			s.removeContent(ctx, newBlob)
		}
		switch {
		case errors.Is(err, store.ErrVersionConflict):
			return nil, ErrVersionConflict
		case errors.Is(err, store.ErrCredentialNotFound):
			return nil, ErrNotFound
		}
		return nil, s.internal("update credential", err)
	}
	if oldBlob != "" {
		s.removeContent(ctx, oldBlob)
	}

	change := audit.Diff(snapshot(cred, publicOnly(rec)), snapshot(&next, publicOnly(nextRec)))
	if in.Fields != nil {
		change.Pairs = append(change.Pairs, secretChanges(current, fields)...)
		sort.Slice(change.Pairs, func(i, j int) bool { return change.Pairs[i].Field < change.Pairs[j].Field })
	}
	s.record(ctx, caller, audit.ActionUpdate, &next, change)

	d = &Detail{Summary: s.summarize(&next), Fields: fields}
	if in.Fields == nil && len(failures) > 0 {
		d.FieldErrors = make(map[string]string, len(failures))
		for field := range failures {
			d.FieldErrors[field] = "could not be decrypted"
		}
	}
	if f, ok := d.Fields.(*File); ok {
		f.Content = nil
	}
	return d, nil
}

// mergeFields copies next and fills its empty secrets from current. Keeping
// a secret that failed to decrypt is refused so it is never overwritten with
// the placeholder.
func mergeFields(next, current Payload, failures map[string]string) (Payload, error) {
	merged, err := clonePayload(next)
	if err != nil {
		return nil, err
	}
	kept := current.secrets()
	for field, value := range merged.secrets() {
		if value != "" {
			continue
		}
		if _, failed := failures[field]; failed {
			return nil, ErrUndecryptable
		}
		merged.setSecret(field, kept[field])
	}
	if f, ok := merged.(*File); ok && len(f.Content) == 0 {
		prev := current.(*File)
		f.ContentRef = prev.ContentRef
		f.Size = prev.Size
	}
	return merged, nil
}

func clonePayload(p Payload) (Payload, error) {
	switch v := p.(type) {
	case *Password:
		c := *v
		return &c, nil
	case *APIOAuth:
		c := *v
		c.Endpoints = append([]string(nil), v.Endpoints...)
		c.Scopes = append([]string(nil), v.Scopes...)
		return &c, nil
	case *KeyCert:
		c := *v
		return &c, nil
	case *Token:
		c := *v
		return &c, nil
	case *SecureNote:
		c := *v
		return &c, nil
	case *File:
		c := *v
		c.ContentRef = ""
		return &c, nil
	}
	return nil, invalid("fields", "are not a known payload")
}

// secretChanges reports changed secrets without their values.
func secretChanges(before, after Payload) []audit.Pair {
	old := before.secrets()
	var pairs []audit.Pair
	for field, value := range after.secrets() {
		if value != old[field] {
			pairs = append(pairs, audit.Pair{Field: field, From: Redacted, To: Redacted})
		}
	}
	return pairs
}
