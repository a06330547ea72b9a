package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

var (
	_ store.MembershipsStore  = (*MembershipsStore)(nil)
	_ store.AccessPolicyStore = (*MembershipsStore)(nil)
)

// MembershipsStore implements store.MembershipsStore and
// store.AccessPolicyStore using GORM
type MembershipsStore struct {
	db *gorm.DB
}

// NewMembershipsStore creates a new MembershipsStore
func NewMembershipsStore(db *gorm.DB) *MembershipsStore {
	return &MembershipsStore{db: db}
}

func (s *MembershipsStore) UserRole(ctx context.Context, userID string) (access.Role, bool, error) {
	user, err := s.FetchUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return access.RoleUser, false, nil
		}
		return access.RoleUser, false, err
	}
	return user.Role, true, nil
}

func (s *MembershipsStore) UserMemberships(ctx context.Context, userID string) ([]access.Membership, error) {
	var memberships []model.Membership
	err := s.db.WithContext(ctx).
		Preload("Group").
		Preload("Scopes").
		Where("user_id = ?", userID).
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	out := make([]access.Membership, 0, len(memberships))
	for _, m := range memberships {
		am, err := m.ToAccess()
		if err != nil {
			return nil, err
		}
		out = append(out, am)
	}
	return out, nil
}

func (s *MembershipsStore) FetchUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Transaction wraps operations in a database transaction.
func (s *MembershipsStore) Transaction(ctx context.Context, fn func(store.AccessPolicyStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&MembershipsStore{db: tx})
	})
}

func (s *MembershipsStore) UpsertUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role", "updated_at"}),
	}).Create(user).Error
}

func (s *MembershipsStore) UpsertGroup(ctx context.Context, group *model.Group) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "actions", "updated_at"}),
	}).Create(group).Error
}

// ReplaceMemberships removes every membership of userID, with its scopes,
// and inserts memberships.
func (s *MembershipsStore) ReplaceMemberships(ctx context.Context, userID string, memberships []model.Membership) error {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return store.ErrUserNotFound
	}

	existing := db.Model(&model.Membership{}).Select("id").Where("user_id = ?", userID)
	if err := db.Where("membership_id IN (?)", existing).Delete(&model.MembershipScope{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", userID).Delete(&model.Membership{}).Error; err != nil {
		return err
	}

	for i := range memberships {
		m := memberships[i]
		m.UserID = userID
		scopes := m.Scopes
		m.Scopes = nil
		if err := db.Omit(clause.Associations).Create(&m).Error; err != nil {
			return err
		}
		for j := range scopes {
			scopes[j].MembershipID = m.ID
		}
		if len(scopes) > 0 {
			if err := db.Create(&scopes).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
