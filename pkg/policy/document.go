package policy

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/credvault/pkg/access"
)

// Document is a parsed access policy.
type Document struct {
	Users       []User       `yaml:"users"`
	Groups      []Group      `yaml:"groups"`
	Memberships []Membership `yaml:"memberships"`
}

type User struct {
	ID   string      `yaml:"id"`
	Name string      `yaml:"name"`
	Role access.Role `yaml:"role"`
}

type Group struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Actions     []string `yaml:"actions"`
}

type Membership struct {
	User         string   `yaml:"user"`
	Group        string   `yaml:"group"`
	Categories   []string `yaml:"categories,omitempty"`
	Environments []string `yaml:"environments,omitempty"`
}

// Parse decodes a document. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	return &doc, nil
}

// Validate checks identifiers, actions and references. Every problem is
// reported, one per line.
func (d *Document) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	users := map[string]bool{}
	for i, u := range d.Users {
		switch {
		case strings.TrimSpace(u.ID) == "":
			add("users[%d]: id is required", i)
		case users[u.ID]:
			add("users[%d]: duplicate id %q", i, u.ID)
		}
		if strings.TrimSpace(u.Name) == "" {
			add("users[%d]: name is required", i)
		}
		if !u.Role.IsARole() {
			add("users[%d]: unknown role", i)
		}
		users[u.ID] = true
	}

	groups := map[string]bool{}
	for i, g := range d.Groups {
		switch {
		case strings.TrimSpace(g.ID) == "":
			add("groups[%d]: id is required", i)
		case groups[g.ID]:
			add("groups[%d]: duplicate id %q", i, g.ID)
		}
		if strings.TrimSpace(g.Name) == "" {
			add("groups[%d]: name is required", i)
		}
		if len(g.Actions) == 0 {
			add("groups[%d]: at least one action is required", i)
		} else if _, err := access.ParseActionSet(g.Actions); err != nil {
			add("groups[%d]: %v", i, err)
		}
		groups[g.ID] = true
	}

	for i, m := range d.Memberships {
		if !users[m.User] {
			add("memberships[%d]: user %q is not declared", i, m.User)
		}
		if !groups[m.Group] {
			add("memberships[%d]: group %q is not declared", i, m.Group)
		}
		for _, v := range append(append([]string(nil), m.Categories...), m.Environments...) {
			if strings.TrimSpace(v) == "" {
				add("memberships[%d]: scope values must not be empty", i)
				break
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &InvalidError{Problems: problems}
}

// InvalidError lists the problems found in a document.
type InvalidError struct {
	Problems []string
}

func (e *InvalidError) Error() string {
	return "invalid policy:\n  " + strings.Join(e.Problems, "\n  ")
}

// membershipsByUser groups the memberships of each declared user. Users
// with no memberships map to an empty slice so their old ones are removed.
func (d *Document) membershipsByUser() map[string][]Membership {
	out := make(map[string][]Membership, len(d.Users))
	for _, u := range d.Users {
		out[u.ID] = []Membership{}
	}
	for _, m := range d.Memberships {
		out[m.User] = append(out[m.User], m)
	}
	return out
}

// scopeValues normalizes a scope list: "*" or nothing means every value.
func scopeValues(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == access.Wildcard {
			return nil
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
