package access

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAccess(t *testing.T) {
	ctx := Compile(RoleUser, []Membership{
		{Actions: NewActionSet(ActionRead), Categories: []string{"Infra"}, Environments: []string{"Prod"}},
		{Actions: NewActionSet(ActionEdit), Categories: []string{"Application"}},
		{Actions: NewActionSet(ActionCreate), Environments: []string{"Dev"}},
	})

	tests := []struct {
		name        string
		category    string
		environment string
		action      Action
		want        bool
	}{
		{"exact pair read", "Infra", "Prod", ActionRead, true},
		{"exact pair edit denied", "Infra", "Prod", ActionEdit, false},
		{"category wildcard env", "Application", "Staging", ActionEdit, true},
		{"wildcard category env", "Billing", "Dev", ActionCreate, true},
		{"union of exact and wildcard", "Infra", "Dev", ActionCreate, true},
		{"union does not exceed grants", "Infra", "Dev", ActionEdit, false},
		{"unmatched", "Billing", "Prod", ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccess(ctx, tt.category, tt.environment, tt.action))
		})
	}
}

func TestCanAccessAdmin(t *testing.T) {
	ctx := Compile(RoleGlobalAdmin, nil)
	assert.True(t, CanAccess(ctx, "anything", "anywhere", ActionAdmin))
}

func TestCanAccessEmptyContextDenies(t *testing.T) {
	assert.False(t, CanAccess(Empty(), "Infra", "Prod", ActionRead))
	assert.False(t, CanAccess(Context{}, "Infra", "Prod", ActionRead))
}

func TestCanView(t *testing.T) {
	admin := Compile(RoleGlobalAdmin, nil)
	reader := Compile(RoleUser, []Membership{{Actions: NewActionSet(ActionRead)}})

	personal := Target{OwnerID: "alice", IsPersonal: true, Category: "Infra", Environment: "Prod"}
	shared := Target{OwnerID: "alice", Category: "Infra", Environment: "Prod"}

	assert.True(t, CanView(Empty(), "alice", personal))
	assert.False(t, CanView(admin, "dave", personal))
	assert.False(t, CanView(reader, "bob", personal))

	assert.True(t, CanView(Empty(), "alice", shared))
	assert.True(t, CanView(admin, "dave", shared))
	assert.True(t, CanView(reader, "bob", shared))
	assert.False(t, CanView(Empty(), "carol", shared))
	assert.False(t, CanView(Empty(), "", Target{Category: "Infra", Environment: "Prod"}))
}

func TestCanModify(t *testing.T) {
	reader := Compile(RoleUser, []Membership{{Actions: NewActionSet(ActionRead)}})
	editor := Compile(RoleUser, []Membership{{Actions: NewActionSet(ActionEdit)}})
	shared := Target{OwnerID: "alice", Category: "Infra", Environment: "Prod"}

	assert.True(t, CanModify(Empty(), "alice", shared, ActionEdit))
	assert.False(t, CanModify(reader, "bob", shared, ActionEdit))
	assert.True(t, CanModify(editor, "bob", shared, ActionEdit))
	assert.False(t, CanModify(Compile(RoleGlobalAdmin, nil), "dave", Target{OwnerID: "alice", IsPersonal: true}, ActionEdit))
}

func TestCanDelete(t *testing.T) {
	admin := Compile(RoleGlobalAdmin, nil)
	editor := Compile(RoleUser, []Membership{{Actions: NewActionSet(ActionAdmin)}})
	shared := Target{OwnerID: "alice", Category: "Infra", Environment: "Prod"}

	assert.True(t, CanDelete(Empty(), "alice", shared))
	assert.True(t, CanDelete(admin, "dave", shared))
	assert.False(t, CanDelete(editor, "bob", shared))
	assert.False(t, CanDelete(admin, "dave", Target{OwnerID: "alice", IsPersonal: true}))
}

func TestCanAccessConcurrent(t *testing.T) {
	ctx := Compile(RoleUser, []Membership{{Actions: NewActionSet(ActionRead), Categories: []string{"Infra"}}})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.True(t, CanAccess(ctx, "Infra", "Prod", ActionRead))
				assert.False(t, CanAccess(ctx, "Other", "Prod", ActionRead))
			}
		}()
	}
	wg.Wait()
}
