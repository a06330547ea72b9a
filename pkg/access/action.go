package access

//go:generate go run github.com/dmarkham/enumer -type Action -trimprefix Action -transform upper -json -yaml -sql -output action.gen.go

// Action is something a caller may do to a credential. Values are ordered:
// each action implies every action below it.
type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionEdit
	ActionAdmin
)

// Implies reports whether a grant of a satisfies a request for other.
func (a Action) Implies(other Action) bool {
	return a.IsAAction() && other.IsAAction() && a >= other
}

// ActionSet is a set of granted actions.
type ActionSet uint8

// NewActionSet returns a set holding the given actions.
func NewActionSet(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s = s.Add(a)
	}
	return s
}

// ParseActionSet parses action names such as "READ" or "edit".
func ParseActionSet(names []string) (ActionSet, error) {
	var s ActionSet
	for _, n := range names {
		a, err := ActionString(n)
		if err != nil {
			return 0, err
		}
		s = s.Add(a)
	}
	return s, nil
}

// Add returns s with a added.
func (s ActionSet) Add(a Action) ActionSet {
	if !a.IsAAction() {
		return s
	}
	return s | 1<<uint(a)
}

// Union returns the actions present in either set.
func (s ActionSet) Union(o ActionSet) ActionSet {
	return s | o
}

// Has reports whether a was granted explicitly.
func (s ActionSet) Has(a Action) bool {
	return a.IsAAction() && s&(1<<uint(a)) != 0
}

// Allows reports whether any granted action implies a.
func (s ActionSet) Allows(a Action) bool {
	if !a.IsAAction() {
		return false
	}
	for _, granted := range ActionValues() {
		if s.Has(granted) && granted.Implies(a) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether nothing is granted.
func (s ActionSet) IsEmpty() bool {
	return s == 0
}

// Actions lists the granted actions in ascending order.
func (s ActionSet) Actions() []Action {
	var out []Action
	for _, a := range ActionValues() {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Strings lists the granted action names in ascending order.
func (s ActionSet) Strings() []string {
	actions := s.Actions()
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.String()
	}
	return out
}
