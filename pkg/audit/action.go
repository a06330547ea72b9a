package audit

//go:generate go run github.com/dmarkham/enumer -type Action -trimprefix Action -transform snake-upper -json -sql -output action.gen.go

// Action is the kind of an audit entry.
type Action int

const (
	ActionCreate Action = iota
	ActionView
	ActionUpdate
	ActionDelete
	ActionShare
	ActionPolicyLoad
	ActionSettingsUpdate
)
