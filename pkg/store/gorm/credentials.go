package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// Ensure CredentialsStore implements store.CredentialsStore
var _ store.CredentialsStore = (*CredentialsStore)(nil)

// CredentialsStore implements store.CredentialsStore using GORM
type CredentialsStore struct {
	db *gorm.DB
}

// NewCredentialsStore creates a new CredentialsStore
func NewCredentialsStore(db *gorm.DB) *CredentialsStore {
	return &CredentialsStore{db: db}
}

// CreateCredential inserts the master record and its payload in one transaction.
func (s *CredentialsStore) CreateCredential(ctx context.Context, cred *model.Credential, payload model.PayloadRecord) error {
	if payload == nil || payload.CredentialType() != cred.Type {
		return store.ErrPayloadMissing
	}
	if cred.Version == 0 {
		cred.Version = 1
	}
	payload.SetCredentialID(cred.ID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cred).Error; err != nil {
			return fmt.Errorf("failed to create credential: %w", err)
		}
		if err := tx.Create(payload).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", payload.TableName(), err)
		}
		return nil
	})
}

// FetchCredential loads a master record and its payload.
func (s *CredentialsStore) FetchCredential(ctx context.Context, id string) (*model.Credential, model.PayloadRecord, error) {
	db := s.db.WithContext(ctx)

	var cred model.Credential
	if err := db.Where("id = ?", id).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, store.ErrCredentialNotFound
		}
		return nil, nil, err
	}

	payload := model.NewPayloadRecord(cred.Type)
	if payload == nil {
		return nil, nil, fmt.Errorf("credential %s has unknown type %s", id, cred.Type)
	}
	if err := db.Where("credential_id = ?", id).First(payload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, store.ErrPayloadMissing
		}
		return nil, nil, err
	}
	return &cred, payload, nil
}

// ListCredentials returns master records matching filter.
func (s *CredentialsStore) ListCredentials(ctx context.Context, filter store.CredentialFilter) ([]model.Credential, error) {
	visibility, args := visibilityClause(filter)
	if visibility == "" {
		return []model.Credential{}, nil
	}

	q := s.db.WithContext(ctx).Model(&model.Credential{}).
		Select("credentials.*").
		Where(visibility, args...)

	if filter.Type != nil {
		q = q.Where("credentials.type = ?", filter.Type.String())
	}
	if filter.Category != "" {
		q = q.Where("credentials.category = ?", filter.Category)
	}
	if filter.Environment != "" {
		q = q.Where("credentials.environment = ?", filter.Environment)
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		q = withSearch(q, query)
	}

	column, ok := store.CredentialSortColumns[filter.SortBy]
	if !ok {
		column = "updated_at"
	}
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}
	q = q.Order(fmt.Sprintf("credentials.%s %s", column, direction))

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var creds []model.Credential
	if err := q.Find(&creds).Error; err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

// visibilityClause turns the visibility part of filter into a SQL condition.
// It returns "" when nothing can be visible.
func visibilityClause(filter store.CredentialFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.OwnerID != "" {
		clauses = append(clauses, "credentials.owner_id = ?")
		args = append(args, filter.OwnerID)
	}

	if filter.AllShared {
		clauses = append(clauses, "credentials.is_personal = false")
	} else {
		for _, scope := range filter.Scopes {
			parts := []string{"credentials.is_personal = false"}
			if scope.Category != access.Wildcard {
				parts = append(parts, "credentials.category = ?")
				args = append(args, scope.Category)
			}
			if scope.Environment != access.Wildcard {
				parts = append(parts, "credentials.environment = ?")
				args = append(args, scope.Environment)
			}
			clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

func withSearch(q *gorm.DB, query string) *gorm.DB {
	pattern := "%" + escapeLike(query) + "%"
	return q.
		Joins("LEFT JOIN password_payloads pp ON pp.credential_id = credentials.id").
		Joins("LEFT JOIN api_oauth_payloads ap ON ap.credential_id = credentials.id").
		Joins("LEFT JOIN key_cert_payloads kp ON kp.credential_id = credentials.id").
		Joins("LEFT JOIN token_payloads tp ON tp.credential_id = credentials.id").
		Joins("LEFT JOIN file_payloads fp ON fp.credential_id = credentials.id").
		Where(`(credentials.name ILIKE @p OR credentials.description ILIKE @p
			OR pp.username ILIKE @p OR pp.url ILIKE @p OR ap.client_id ILIKE @p
			OR kp.key_type ILIKE @p OR tp.issuer ILIKE @p OR fp.file_name ILIKE @p)`,
			map[string]interface{}{"p": pattern})
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// UpdateCredential replaces the master record and payload if the stored
// version still equals expectedVersion.
func (s *CredentialsStore) UpdateCredential(ctx context.Context, cred *model.Credential, expectedVersion int, payload model.PayloadRecord) error {
	if payload == nil || payload.CredentialType() != cred.Type {
		return store.ErrPayloadMissing
	}
	payload.SetCredentialID(cred.ID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Credential{}).
			Where("id = ? AND version = ?", cred.ID, expectedVersion).
			Updates(map[string]interface{}{
				"name":        cred.Name,
				"description": cred.Description,
				"category":    cred.Category,
				"environment": cred.Environment,
				"is_personal": cred.IsPersonal,
				"expires_at":  cred.ExpiresAt,
				"version":     cred.Version,
				"updated_at":  cred.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update credential: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Credential{}).Where("id = ?", cred.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return store.ErrCredentialNotFound
			}
			return store.ErrVersionConflict
		}

		if err := tx.Where("credential_id = ?", cred.ID).Delete(model.NewPayloadRecord(cred.Type)).Error; err != nil {
			return fmt.Errorf("failed to replace %s: %w", payload.TableName(), err)
		}
		if err := tx.Create(payload).Error; err != nil {
			return fmt.Errorf("failed to replace %s: %w", payload.TableName(), err)
		}
		return nil
	})
}

// DeleteCredential removes a credential with its payload and shares. Audit
// rows survive with their credential reference nulled.
func (s *CredentialsStore) DeleteCredential(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cred model.Credential
		if err := tx.Where("id = ?", id).First(&cred).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrCredentialNotFound
			}
			return err
		}

		if payload := model.NewPayloadRecord(cred.Type); payload != nil {
			if err := tx.Where("credential_id = ?", id).Delete(payload).Error; err != nil {
				return fmt.Errorf("failed to delete payload: %w", err)
			}
		}
		if err := tx.Where("credential_id = ?", id).Delete(&model.Share{}).Error; err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}
		if err := tx.Model(&model.AuditLog{}).Where("credential_id = ?", id).Update("credential_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach audit rows: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&model.Credential{}).Error; err != nil {
			return fmt.Errorf("failed to delete credential: %w", err)
		}
		return nil
	})
}

// CreateShare records a point grant, replacing an earlier grant to the same user.
func (s *CredentialsStore) CreateShare(ctx context.Context, share *model.Share) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Credential{}).Where("id = ?", share.CredentialID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return store.ErrCredentialNotFound
		}
		if err := tx.Where("credential_id = ? AND user_id = ?", share.CredentialID, share.UserID).Delete(&model.Share{}).Error; err != nil {
			return err
		}
		return tx.Create(share).Error
	})
}

// ListShares returns the point grants of a credential.
func (s *CredentialsStore) ListShares(ctx context.Context, credentialID string) ([]model.Share, error) {
	var shares []model.Share
	err := s.db.WithContext(ctx).Where("credential_id = ?", credentialID).Order("created_at").Find(&shares).Error
	return shares, err
}
