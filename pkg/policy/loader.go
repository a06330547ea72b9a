package policy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

var errDryRun = errors.New("dry run")

// Auditor receives the POLICY_LOAD entry of a successful load.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// Result summarizes an applied document.
type Result struct {
	SHA256      string `json:"sha256"`
	Users       int    `json:"users"`
	Groups      int    `json:"groups"`
	Memberships int    `json:"memberships"`
	DryRun      bool   `json:"dryRun,omitempty"`
}

// Loader applies access policy documents.
type Loader struct {
	store    store.AccessPolicyStore
	auditor  Auditor
	log      logrus.FieldLogger
	actorID  string
	clientIP string
	dryRun   bool
	newID    func() string
}

// NewLoader creates a loader writing to s.
func NewLoader(s store.AccessPolicyStore) *Loader {
	return &Loader{
		store: s,
		log:   logrus.StandardLogger().WithField("component", "policy"),
		newID: uuid.NewString,
	}
}

// WithAuditor records each successful load with a.
func (l *Loader) WithAuditor(a Auditor) *Loader {
	l.auditor = a
	return l
}

// WithLogger replaces the logger.
func (l *Loader) WithLogger(log logrus.FieldLogger) *Loader {
	l.log = log.WithField("component", "policy")
	return l
}

// WithActor sets the user the load is attributed to.
func (l *Loader) WithActor(userID string) *Loader {
	l.actorID = userID
	return l
}

// WithClientIP sets the source address for audit.
func (l *Loader) WithClientIP(clientIP string) *Loader {
	l.clientIP = clientIP
	return l
}

// WithDryRun validates and applies inside a transaction that is always
// rolled back.
func (l *Loader) WithDryRun(dryRun bool) *Loader {
	l.dryRun = dryRun
	return l
}

// LoadFromReader reads, parses and loads a document.
func (l *Loader) LoadFromReader(ctx context.Context, r io.Reader) (*Result, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	doc, err := Parse(bytes.NewReader(text))
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(text)
	return l.Load(ctx, doc, hex.EncodeToString(sum[:]))
}

// Load validates doc and applies it in one transaction. digest identifies
// the source text in the audit trail.
func (l *Loader) Load(ctx context.Context, doc *Document, digest string) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		SHA256: digest,
		Users:  len(doc.Users),
		Groups: len(doc.Groups),
		DryRun: l.dryRun,
	}

	err := l.store.Transaction(ctx, func(tx store.AccessPolicyStore) error {
		for _, u := range doc.Users {
			if err := tx.UpsertUser(ctx, &model.User{ID: u.ID, Name: u.Name, Role: u.Role}); err != nil {
				return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
			}
		}
		for _, g := range doc.Groups {
			group := &model.Group{
				ID:          g.ID,
				Name:        g.Name,
				Description: g.Description,
				Actions:     g.Actions,
			}
			if err := tx.UpsertGroup(ctx, group); err != nil {
				return fmt.Errorf("failed to upsert group %s: %w", g.ID, err)
			}
		}
		for userID, memberships := range doc.membershipsByUser() {
			rows := make([]model.Membership, 0, len(memberships))
			for _, m := range memberships {
				rows = append(rows, l.membership(userID, m))
			}
			if err := tx.ReplaceMemberships(ctx, userID, rows); err != nil {
				return fmt.Errorf("failed to replace memberships of %s: %w", userID, err)
			}
			result.Memberships += len(rows)
		}

		if l.dryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"sha256":      digest,
		"users":       result.Users,
		"groups":      result.Groups,
		"memberships": result.Memberships,
	}).Info("loaded access policy")

	if l.auditor != nil {
		l.auditor.Record(ctx, audit.Entry{
			Action:        audit.ActionPolicyLoad,
			ActorID:       l.actorID,
			SourceAddress: l.clientIP,
			Change: audit.Scalar{Text: fmt.Sprintf(
				"sha256=%s users=%d groups=%d memberships=%d",
				digest, result.Users, result.Groups, result.Memberships,
			)},
		})
	}
	return result, nil
}

func (l *Loader) membership(userID string, m Membership) model.Membership {
	id := l.newID()
	row := model.Membership{ID: id, UserID: userID, GroupID: m.Group}
	for _, v := range scopeValues(m.Categories) {
		row.Scopes = append(row.Scopes, model.MembershipScope{MembershipID: id, Dimension: model.DimensionCategory, Value: v})
	}
	for _, v := range scopeValues(m.Environments) {
		row.Scopes = append(row.Scopes, model.MembershipScope{MembershipID: id, Dimension: model.DimensionEnvironment, Value: v})
	}
	return row
}
