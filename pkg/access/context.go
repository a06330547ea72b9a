package access

import (
	"context"
	"fmt"
	"sort"
)

// Wildcard matches every category or every environment.
const Wildcard = "*"

// Membership is one group grant held by a user. Empty Categories or
// Environments mean the grant applies to all of them.
type Membership struct {
	GroupID      string
	GroupName    string
	Actions      ActionSet
	Categories   []string
	Environments []string
}

// Scope is a (category, environment) pair; either side may be Wildcard.
type Scope struct {
	Category    string
	Environment string
}

// Context is the compiled, per-user permission map.
type Context struct {
	IsAdmin     bool
	Permissions map[string]map[string]ActionSet
}

// Empty returns a context that denies everything.
func Empty() Context {
	return Context{Permissions: map[string]map[string]ActionSet{}}
}

// Compile expands memberships into a permission map. Global administrators
// get IsAdmin and an empty map. The result depends only on the inputs.
func Compile(role Role, memberships []Membership) Context {
	ctx := Empty()
	if role.IsAdmin() {
		ctx.IsAdmin = true
		return ctx
	}

	for _, m := range memberships {
		if m.Actions.IsEmpty() {
			continue
		}
		for _, category := range orWildcard(m.Categories) {
			envs, ok := ctx.Permissions[category]
			if !ok {
				envs = map[string]ActionSet{}
				ctx.Permissions[category] = envs
			}
			for _, environment := range orWildcard(m.Environments) {
				envs[environment] = envs[environment].Union(m.Actions)
			}
		}
	}
	return ctx
}

func orWildcard(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{Wildcard}
	}
	return out
}

// ScopesAllowing lists every map entry whose actions allow a, sorted for
// stable query generation.
func (c Context) ScopesAllowing(a Action) []Scope {
	var scopes []Scope
	for category, envs := range c.Permissions {
		for environment, actions := range envs {
			if actions.Allows(a) {
				scopes = append(scopes, Scope{Category: category, Environment: environment})
			}
		}
	}
	sort.Slice(scopes, func(i, j int) bool {
		if scopes[i].Category != scopes[j].Category {
			return scopes[i].Category < scopes[j].Category
		}
		return scopes[i].Environment < scopes[j].Environment
	})
	return scopes
}

// MembershipSource supplies the role and memberships of a user.
type MembershipSource interface {
	// UserRole returns the role of userID. found is false for unknown users.
	UserRole(ctx context.Context, userID string) (role Role, found bool, err error)

	// UserMemberships returns every membership held by userID.
	UserMemberships(ctx context.Context, userID string) ([]Membership, error)
}

// Builder loads access contexts from a MembershipSource.
type Builder struct {
	source MembershipSource
}

// NewBuilder creates a Builder reading from source.
func NewBuilder(source MembershipSource) *Builder {
	return &Builder{source: source}
}

// Build returns the access context of userID. Unknown users get an empty
// context and no error. On store failure the returned context is empty.
func (b *Builder) Build(ctx context.Context, userID string) (Context, error) {
	if userID == "" {
		return Empty(), nil
	}

	role, found, err := b.source.UserRole(ctx, userID)
	if err != nil {
		return Empty(), fmt.Errorf("loading role of %s: %w", userID, err)
	}
	if !found {
		return Empty(), nil
	}
	if role.IsAdmin() {
		return Compile(role, nil), nil
	}

	memberships, err := b.source.UserMemberships(ctx, userID)
	if err != nil {
		return Empty(), fmt.Errorf("loading memberships of %s: %w", userID, err)
	}
	return Compile(role, memberships), nil
}
