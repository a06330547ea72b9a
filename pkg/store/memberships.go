package store

import (
	"context"
	"errors"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/model"
)

// ErrUserNotFound is returned when a user doesn't exist
var ErrUserNotFound = errors.New("user not found")

// MembershipsStore supplies users and their scoped group memberships.
type MembershipsStore interface {
	access.MembershipSource

	// FetchUser retrieves a user by ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	FetchUser(ctx context.Context, id string) (*model.User, error)
}

// AccessPolicyStore writes users, groups and memberships.
type AccessPolicyStore interface {
	// Transaction wraps operations in a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Transaction(ctx context.Context, fn func(AccessPolicyStore) error) error

	// UpsertUser creates or updates a user.
	UpsertUser(ctx context.Context, user *model.User) error

	// UpsertGroup creates or updates a group.
	UpsertGroup(ctx context.Context, group *model.Group) error

	// ReplaceMemberships removes every membership of userID and inserts memberships.
	ReplaceMemberships(ctx context.Context, userID string, memberships []model.Membership) error
}
