package policy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/store/memory"
)

const sample = `
users:
  - id: alice
    name: Alice
  - id: root
    name: Root
    role: global_admin
groups:
  - id: db-editors
    name: Database editors
    actions: [EDIT]
  - id: readers
    name: Readers
    actions: [read]
memberships:
  - user: alice
    group: db-editors
    categories: [database]
    environments: [production, staging]
  - user: alice
    group: readers
    environments: ["*"]
`

type recorded struct{ entries []audit.Entry }

func (r *recorded) Record(_ context.Context, e audit.Entry) { r.entries = append(r.entries, e) }

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.NoError(t, doc.Validate())

	assert.Len(t, doc.Users, 2)
	assert.Equal(t, access.RoleGlobalAdmin, doc.Users[1].Role)
	assert.Equal(t, access.RoleUser, doc.Users[0].Role)
	assert.Equal(t, []string{"production", "staging"}, doc.Memberships[0].Environments)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("users:\n  - id: a\n    nmae: typo\n"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	doc, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.NoError(t, doc.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want []string
	}{
		{
			name: "duplicate user",
			doc:  Document{Users: []User{{ID: "a", Name: "A"}, {ID: "a", Name: "A"}}},
			want: []string{`users[1]: duplicate id "a"`},
		},
		{
			name: "group without actions",
			doc:  Document{Groups: []Group{{ID: "g", Name: "G"}}},
			want: []string{"groups[0]: at least one action is required"},
		},
		{
			name: "unknown action",
			doc:  Document{Groups: []Group{{ID: "g", Name: "G", Actions: []string{"DESTROY"}}}},
			want: []string{"groups[0]: "},
		},
		{
			name: "dangling references",
			doc:  Document{Memberships: []Membership{{User: "ghost", Group: "void"}}},
			want: []string{`user "ghost" is not declared`, `group "void" is not declared`},
		},
		{
			name: "empty scope value",
			doc: Document{
				Users:       []User{{ID: "a", Name: "A"}},
				Groups:      []Group{{ID: "g", Name: "G", Actions: []string{"READ"}}},
				Memberships: []Membership{{User: "a", Group: "g", Categories: []string{" "}}},
			},
			want: []string{"scope values must not be empty"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			var invalid *InvalidError
			require.True(t, errors.As(err, &invalid))
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestScopeValues(t *testing.T) {
	assert.Nil(t, scopeValues(nil))
	assert.Nil(t, scopeValues([]string{"prod", "*"}))
	assert.Equal(t, []string{"prod", "staging"}, scopeValues([]string{"staging", "prod", "staging"}))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	auditor := &recorded{}

	result, err := NewLoader(mem).
		WithAuditor(auditor).
		WithActor("root").
		WithClientIP("127.0.0.1").
		LoadFromReader(ctx, strings.NewReader(sample))
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(sample))
	assert.Equal(t, hex.EncodeToString(sum[:]), result.SHA256)
	assert.Equal(t, 2, result.Users)
	assert.Equal(t, 2, result.Groups)
	assert.Equal(t, 2, result.Memberships)

	ac, err := access.NewBuilder(mem).Build(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, access.CanAccess(ac, "database", "production", access.ActionEdit))
	assert.False(t, access.CanAccess(ac, "database", "dev", access.ActionEdit))
	assert.True(t, access.CanAccess(ac, "network", "dev", access.ActionRead))

	root, err := access.NewBuilder(mem).Build(ctx, "root")
	require.NoError(t, err)
	assert.True(t, root.IsAdmin)

	require.Len(t, auditor.entries, 1)
	entry := auditor.entries[0]
	assert.Equal(t, audit.ActionPolicyLoad, entry.Action)
	assert.Equal(t, "root", entry.ActorID)
	assert.Contains(t, audit.Render(entry.Change), result.SHA256)
}

func TestLoadReplacesMemberships(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	_, err := NewLoader(mem).LoadFromReader(ctx, strings.NewReader(sample))
	require.NoError(t, err)

	narrowed := `
users:
  - id: alice
    name: Alice
groups:
  - id: readers
    name: Readers
    actions: [READ]
`
	_, err = NewLoader(mem).LoadFromReader(ctx, strings.NewReader(narrowed))
	require.NoError(t, err)

	memberships, err := mem.UserMemberships(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, memberships)

	// Users the document leaves out keep their role.
	root, err := access.NewBuilder(mem).Build(ctx, "root")
	require.NoError(t, err)
	assert.True(t, root.IsAdmin)
}

func TestLoadDryRun(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	auditor := &recorded{}

	result, err := NewLoader(mem).WithAuditor(auditor).WithDryRun(true).
		LoadFromReader(ctx, strings.NewReader(sample))
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Empty(t, auditor.entries)

	_, err = mem.FetchUser(ctx, "alice")
	assert.Error(t, err)
}

func TestLoadRollsBack(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	mem.FailOn("ReplaceMemberships", errors.New("deadlock"))

	_, err := NewLoader(mem).LoadFromReader(ctx, strings.NewReader(sample))
	require.Error(t, err)

	_, err = mem.FetchUser(ctx, "alice")
	assert.Error(t, err)
}

func TestLoadInvalidDocumentWritesNothing(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	_, err := NewLoader(mem).LoadFromReader(ctx, strings.NewReader("memberships:\n  - user: ghost\n    group: g\n"))
	var invalid *InvalidError
	assert.True(t, errors.As(err, &invalid))
}
