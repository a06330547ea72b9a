package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Change kinds as stored in the "kind" member of the JSON form.
const (
	KindPaired   = "paired"
	KindSnapshot = "snapshot"
	KindScalar   = "scalar"
	KindRaw      = "raw"
)

// Change is the payload of an audit entry.
type Change interface {
	Kind() string
	isChange()
}

// Pair is one changed field.
type Pair struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Paired lists field-level before/after values.
type Paired struct {
	Pairs []Pair `json:"pairs"`
}

// Snapshot holds the non-secret values of a whole record.
type Snapshot struct {
	Values map[string]string `json:"values"`
}

// Scalar is a free-form description.
type Scalar struct {
	Text string `json:"text"`
}

// Raw is a stored payload that could not be classified.
type Raw struct {
	Text string `json:"text"`
}

func (Paired) Kind() string   { return KindPaired }
func (Snapshot) Kind() string { return KindSnapshot }
func (Scalar) Kind() string   { return KindScalar }
func (Raw) Kind() string      { return KindRaw }

func (Paired) isChange()   {}
func (Snapshot) isChange() {}
func (Scalar) isChange()   {}
func (Raw) isChange()      {}

// Diff pairs up the fields whose values differ between before and after.
// Pairs are ordered by field name.
func Diff(before, after map[string]string) Paired {
	fields := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		fields[k] = struct{}{}
	}
	for k := range after {
		fields[k] = struct{}{}
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		if before[k] != after[k] {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	pairs := make([]Pair, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, Pair{Field: k, From: before[k], To: after[k]})
	}
	return Paired{Pairs: pairs}
}

type envelope struct {
	Kind   string            `json:"kind"`
	Pairs  []Pair            `json:"pairs,omitempty"`
	Values map[string]string `json:"values,omitempty"`
	Text   string            `json:"text,omitempty"`
}

// EncodeChange returns the JSON form of c. A nil change encodes as JSON null.
func EncodeChange(c Change) ([]byte, error) {
	var env envelope
	switch v := c.(type) {
	case nil:
		return []byte("null"), nil
	case Paired:
		env = envelope{Kind: KindPaired, Pairs: v.Pairs}
		if env.Pairs == nil {
			env.Pairs = []Pair{}
		}
	case Snapshot:
		env = envelope{Kind: KindSnapshot, Values: v.Values}
		if env.Values == nil {
			env.Values = map[string]string{}
		}
	case Scalar:
		env = envelope{Kind: KindScalar, Text: v.Text}
	case Raw:
		env = envelope{Kind: KindRaw, Text: v.Text}
	default:
		return nil, fmt.Errorf("unsupported change type %T", c)
	}
	return json.Marshal(env)
}

// DecodeChange reads a stored payload. It returns nil for an empty payload
// and Raw for anything that is not a well-formed tagged change.
func DecodeChange(data []byte) Change {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Raw{Text: trimmed}
	}

	switch env.Kind {
	case KindPaired:
		return Paired{Pairs: env.Pairs}
	case KindSnapshot:
		return Snapshot{Values: env.Values}
	case KindScalar:
		return Scalar{Text: env.Text}
	case KindRaw:
		return Raw{Text: env.Text}
	}
	return Raw{Text: trimmed}
}

// Render returns a one-line human readable form of c.
func Render(c Change) string {
	switch v := c.(type) {
	case nil:
		return ""
	case Paired:
		parts := make([]string, 0, len(v.Pairs))
		for _, p := range v.Pairs {
			parts = append(parts, fmt.Sprintf("%s: %q -> %q", p.Field, p.From, p.To))
		}
		return strings.Join(parts, "; ")
	case Snapshot:
		keys := make([]string, 0, len(v.Values))
		for k := range v.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%q", k, v.Values[k]))
		}
		return strings.Join(parts, ", ")
	case Scalar:
		return v.Text
	case Raw:
		return v.Text
	}
	return fmt.Sprint(c)
}

// ChangeJSON wraps a Change so it can sit in JSON documents.
type ChangeJSON struct {
	Change
}

func (c ChangeJSON) MarshalJSON() ([]byte, error) {
	return EncodeChange(c.Change)
}

func (c *ChangeJSON) UnmarshalJSON(data []byte) error {
	c.Change = DecodeChange(data)
	return nil
}
