package access

// CanAccess decides whether ctx permits action on credentials classified
// under (category, environment). Grants found under the exact pair and under
// each wildcard combination are combined before deciding.
func CanAccess(ctx Context, category, environment string, action Action) bool {
	if ctx.IsAdmin {
		return true
	}
	return effective(ctx, category, environment).Allows(action)
}

func effective(ctx Context, category, environment string) ActionSet {
	var granted ActionSet
	for _, c := range []string{category, Wildcard} {
		envs, ok := ctx.Permissions[c]
		if !ok {
			continue
		}
		granted = granted.Union(envs[environment]).Union(envs[Wildcard])
	}
	return granted
}

// Target is the classification and ownership of a credential, which is all
// the guard needs to know about it.
type Target struct {
	OwnerID     string
	IsPersonal  bool
	Category    string
	Environment string
}

// CanView reports whether userID may see target. Personal credentials are
// visible to their owner only, regardless of role; owners always see their
// own credentials.
func CanView(ctx Context, userID string, target Target) bool {
	if target.IsPersonal {
		return userID != "" && userID == target.OwnerID
	}
	if userID != "" && userID == target.OwnerID {
		return true
	}
	return CanAccess(ctx, target.Category, target.Environment, ActionRead)
}

// CanModify reports whether userID may apply action to a visible target.
func CanModify(ctx Context, userID string, target Target, action Action) bool {
	if target.IsPersonal {
		return userID != "" && userID == target.OwnerID
	}
	if userID != "" && userID == target.OwnerID {
		return true
	}
	return CanAccess(ctx, target.Category, target.Environment, action)
}

// CanDelete reports whether userID may delete target. Only the owner or a
// global administrator may, whatever the permission map says.
func CanDelete(ctx Context, userID string, target Target) bool {
	if userID != "" && userID == target.OwnerID {
		return true
	}
	return ctx.IsAdmin && !target.IsPersonal
}
