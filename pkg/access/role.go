package access

//go:generate go run github.com/dmarkham/enumer -type Role -trimprefix Role -transform snake -json -yaml -sql -output role.gen.go

// Role is a user's platform-wide role. Only RoleGlobalAdmin changes
// authorization outcomes.
type Role int

const (
	RoleUser Role = iota
	RoleGlobalAdmin
)

// IsAdmin reports whether r bypasses the permission map.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleGlobalAdmin:
		return true
	case RoleUser:
		return false
	default:
		return false
	}
}
