package vault

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/cipher"
	"github.com/doodlesbykumbi/credvault/pkg/metrics"
	"github.com/doodlesbykumbi/credvault/pkg/model"
)

// Get returns a credential with its secrets decrypted. Missing and hidden
// credentials both yield ErrNotFound. Every successful read is audited.
func (s *Service) Get(ctx context.Context, caller Caller, id string) (d *Detail, err error) {
	defer s.observe("get", time.Now(), &err)

	cred, rec, _, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	fields, failures, err := s.decrypt(cred, rec)
	if err != nil {
		return nil, err
	}

	d = &Detail{Summary: s.summarize(cred), Fields: fields}
	if len(failures) > 0 {
		d.FieldErrors = make(map[string]string, len(failures))
		for field := range failures {
			d.FieldErrors[field] = "could not be decrypted"
		}
	}

	s.record(ctx, caller, audit.ActionView, cred, audit.Scalar{Text: "viewed credential"})
	return d, nil
}

// FetchContent returns the decrypted bytes of a FILE credential.
func (s *Service) FetchContent(ctx context.Context, caller Caller, id string) (f *File, data []byte, err error) {
	defer s.observe("fetch_content", time.Now(), &err)

	cred, rec, _, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, nil, err
	}
	filePayload, ok := rec.(*model.FilePayload)
	if !ok || filePayload.ContentRef == "" {
		return nil, nil, ErrNotFound
	}

	var buf bytes.Buffer
	if err := s.blobs.Get(ctx, filePayload.ContentRef, &buf); err != nil {
		return nil, nil, s.internal("read content", err)
	}
	data, err = s.keys.Content.Decrypt(cipher.ContentAAD(cred.ID), buf.Bytes())
	if err != nil {
		metrics.RecordDecryptFailure("content")
		s.log.WithError(err).WithField("credential", cred.ID).Warn("failed to decrypt content")
		return nil, nil, ErrUndecryptable
	}

	f = &File{
		FileName:   filePayload.FileName,
		FileType:   filePayload.FileType,
		Size:       filePayload.Size,
		ContentRef: filePayload.ContentRef,
	}
	s.record(ctx, caller, audit.ActionView, cred, audit.Scalar{Text: "downloaded content"})
	return f, data, nil
}

// visible loads a credential the caller may see, along with the caller's
// access context.
func (s *Service) visible(ctx context.Context, caller Caller, id string) (*model.Credential, model.PayloadRecord, access.Context, error) {
	cred, rec, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, access.Empty(), err
	}
	ac, err := s.contextFor(ctx, caller)
	if err != nil {
		return nil, nil, ac, err
	}
	if !access.CanView(ac, caller.UserID, cred.Target()) {
		return nil, nil, ac, ErrNotFound
	}
	return cred, rec, ac, nil
}

// decrypt opens rec. Field failures are logged and counted but do not fail
// the call.
func (s *Service) decrypt(cred *model.Credential, rec model.PayloadRecord) (Payload, map[string]string, error) {
	fields, failures := s.sealer.open(cred.ID, rec)
	if fields == nil {
		return nil, nil, s.internal("decode payload", errors.New(failures["fields"]))
	}
	for field, reason := range failures {
		metrics.RecordDecryptFailure(field)
		s.log.WithFields(logrus.Fields{
			"credential": cred.ID,
			"field":      field,
			"error":      reason,
		}).Warn("failed to decrypt secret field")
	}
	return fields, failures, nil
}
