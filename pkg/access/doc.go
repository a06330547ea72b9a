// Package access compiles a user's group memberships into an access context
// and answers authorization questions against it.
//
// A Context maps (category, environment) pairs to the set of actions granted
// on credentials classified under that pair. Either key may be the wildcard
// "*", which is what a membership with an empty category or environment set
// expands to.
//
// # Building a context
//
//	builder := access.NewBuilder(memberships)
//	ctx, err := builder.Build(requestCtx, userID)
//
// Compile is the pure core of Build and can be used directly when the role and
// memberships are already in hand.
//
// # Deciding
//
//	if access.CanAccess(ctx, "Infra", "Prod", access.ActionRead) { ... }
//
// Actions are ordered READ < CREATE < EDIT < ADMIN and a higher grant always
// satisfies a lower request. Global administrators bypass the map entirely.
package access
