package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

func stepClock(s *Store) {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time {
		t = t.Add(time.Second)
		return t
	})
}

func seedCredential(t *testing.T, s *Store, id, owner, category, env string, personal bool) {
	t.Helper()
	err := s.CreateCredential(context.Background(), &model.Credential{
		ID: id, Name: id, Type: model.CredentialTypePassword,
		Category: category, Environment: env, OwnerID: owner, IsPersonal: personal,
	}, &model.PasswordPayload{Username: "user-" + id, Password: []byte("ct")})
	require.NoError(t, err)
}

func TestCreateAndFetchCredential(t *testing.T) {
	ctx := context.Background()
	s := New()

	payload := &model.PasswordPayload{Username: "admin", Password: []byte{1, 2, 3}}
	cred := &model.Credential{ID: "c1", Name: "DB", Type: model.CredentialTypePassword, OwnerID: "alice"}
	require.NoError(t, s.CreateCredential(ctx, cred, payload))
	assert.Equal(t, 1, cred.Version)

	got, gotPayload, err := s.FetchCredential(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "DB", got.Name)
	pw := gotPayload.(*model.PasswordPayload)
	assert.Equal(t, "c1", pw.CredentialID)

	// stored payloads do not alias caller memory
	payload.Password[0] = 9
	pw.Password[1] = 9
	_, again, _ := s.FetchCredential(ctx, "c1")
	assert.Equal(t, []byte{1, 2, 3}, again.(*model.PasswordPayload).Password)

	_, _, err = s.FetchCredential(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrCredentialNotFound)
}

func TestCreateCredentialRequiresMatchingPayload(t *testing.T) {
	s := New()
	err := s.CreateCredential(context.Background(),
		&model.Credential{ID: "c1", Type: model.CredentialTypeToken},
		&model.PasswordPayload{})
	assert.ErrorIs(t, err, store.ErrPayloadMissing)

	_, _, err = s.FetchCredential(context.Background(), "c1")
	assert.ErrorIs(t, err, store.ErrCredentialNotFound)
}

func TestListCredentialsVisibility(t *testing.T) {
	ctx := context.Background()
	s := New()
	stepClock(s)
	seedCredential(t, s, "own-personal", "alice", "Infra", "Prod", true)
	seedCredential(t, s, "other-personal", "bob", "Infra", "Prod", true)
	seedCredential(t, s, "infra-prod", "bob", "Infra", "Prod", false)
	seedCredential(t, s, "app-dev", "bob", "Application", "Dev", false)

	ids := func(items []model.Credential) []string {
		var out []string
		for _, c := range items {
			out = append(out, c.ID)
		}
		return out
	}

	got, err := s.ListCredentials(ctx, store.CredentialFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"own-personal"}, ids(got))

	got, err = s.ListCredentials(ctx, store.CredentialFilter{
		OwnerID: "alice",
		Scopes:  []access.Scope{{Category: "Infra", Environment: access.Wildcard}},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"own-personal", "infra-prod"}, ids(got))

	got, err = s.ListCredentials(ctx, store.CredentialFilter{OwnerID: "dave", AllShared: true, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"app-dev", "infra-prod"}, ids(got))
}

func TestListCredentialsSearchAndFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	stepClock(s)
	seedCredential(t, s, "alpha", "alice", "Infra", "Prod", false)
	seedCredential(t, s, "beta", "alice", "Infra", "Dev", false)
	require.NoError(t, s.CreateCredential(ctx, &model.Credential{
		ID: "gamma", Name: "gamma", Type: model.CredentialTypeAPIOAuth, OwnerID: "alice",
		Category: "Application", Environment: "Prod",
	}, &model.APIOAuthPayload{ClientID: "billing-client", Scopes: pq.StringArray{"read"}}))

	got, err := s.ListCredentials(ctx, store.CredentialFilter{OwnerID: "alice", Query: "BILLING"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "gamma", got[0].ID)

	got, err = s.ListCredentials(ctx, store.CredentialFilter{OwnerID: "alice", Query: "user-beta"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "beta", got[0].ID)

	passwordType := model.CredentialTypePassword
	got, err = s.ListCredentials(ctx, store.CredentialFilter{OwnerID: "alice", Type: &passwordType, Environment: "Prod"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alpha", got[0].ID)

	got, err = s.ListCredentials(ctx, store.CredentialFilter{OwnerID: "alice", SortBy: "name", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "beta", got[0].ID)
	assert.Equal(t, "gamma", got[1].ID)
}

func TestUpdateCredentialVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedCredential(t, s, "c1", "alice", "Infra", "Prod", false)

	updated := &model.Credential{ID: "c1", Name: "renamed", Type: model.CredentialTypePassword, OwnerID: "alice", Version: 2}
	err := s.UpdateCredential(ctx, updated, 5, &model.PasswordPayload{})
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	require.NoError(t, s.UpdateCredential(ctx, updated, 1, &model.PasswordPayload{Username: "new"}))
	got, payload, err := s.FetchCredential(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "new", payload.(*model.PasswordPayload).Username)

	assert.ErrorIs(t, s.UpdateCredential(ctx, &model.Credential{ID: "nope"}, 1, nil), store.ErrCredentialNotFound)
}

func TestDeleteCredentialKeepsAuditRows(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedCredential(t, s, "c1", "alice", "Infra", "Prod", false)
	require.NoError(t, s.CreateShare(ctx, &model.Share{ID: "s1", CredentialID: "c1", UserID: "bob", Permission: access.ActionRead}))

	id := "c1"
	require.NoError(t, s.SaveAuditLog(ctx, &model.AuditLog{ID: "a1", Action: "VIEW", CredentialID: &id, CredentialName: "c1"}))

	require.NoError(t, s.DeleteCredential(ctx, "c1"))

	_, _, err := s.FetchCredential(ctx, "c1")
	assert.ErrorIs(t, err, store.ErrCredentialNotFound)
	shares, err := s.ListShares(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, shares)

	rows := s.AuditRows()
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].CredentialID)
	assert.Equal(t, "c1", rows[0].CredentialName)

	assert.ErrorIs(t, s.DeleteCredential(ctx, "c1"), store.ErrCredentialNotFound)
}

func TestMemberships(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.UpsertUser(ctx, &model.User{ID: "bob", Name: "Bob", Role: access.RoleUser}))
	require.NoError(t, s.UpsertGroup(ctx, &model.Group{ID: "readers", Name: "Readers", Actions: pq.StringArray{"READ"}}))
	require.NoError(t, s.ReplaceMemberships(ctx, "bob", []model.Membership{{
		ID: "m1", GroupID: "readers",
		Scopes: []model.MembershipScope{
			{MembershipID: "m1", Dimension: model.DimensionCategory, Value: "Infra"},
		},
	}}))

	role, found, err := s.UserRole(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, access.RoleUser, role)

	ms, err := s.UserMemberships(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, []string{"Infra"}, ms[0].Categories)
	assert.Empty(t, ms[0].Environments)
	assert.True(t, ms[0].Actions.Has(access.ActionRead))

	_, found, err = s.UserRole(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, found)

	assert.ErrorIs(t, s.ReplaceMemberships(ctx, "ghost", nil), store.ErrUserNotFound)
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Transaction(ctx, func(tx store.AccessPolicyStore) error {
		require.NoError(t, tx.UpsertUser(ctx, &model.User{ID: "bob", Name: "Bob"}))
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")

	_, err = s.FetchUser(ctx, "bob")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestQueryAuditLogs(t *testing.T) {
	ctx := context.Background()
	s := New()
	stepClock(s)

	for i, row := range []model.AuditLog{
		{ID: "1", Action: "CREATE", ActorName: "Alice", CredentialName: "DB", SourceAddress: "10.0.0.1"},
		{ID: "2", Action: "VIEW", ActorName: "Bob", CredentialName: "DB", SourceAddress: "10.0.0.2"},
		{ID: "3", Action: "VIEW", ActorName: "Bob", CredentialName: "API", SourceAddress: "10.0.0.2"},
	} {
		row := row
		require.NoError(t, s.SaveAuditLog(ctx, &row), "row %d", i)
	}

	rows, total, err := s.QueryAuditLogs(ctx, store.AuditQuery{Descending: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, "3", rows[0].ID)

	rows, total, err = s.QueryAuditLogs(ctx, store.AuditQuery{ActorName: "bob", Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", rows[0].ID)

	_, total, err = s.QueryAuditLogs(ctx, store.AuditQuery{Search: "10.0.0.1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	rows, _, err = s.QueryAuditLogs(ctx, store.AuditQuery{SortBy: "credential"})
	require.NoError(t, err)
	assert.Equal(t, "API", rows[0].CredentialName)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, ok, err := s.GetSetting(ctx, store.SettingAuditPersonalCredentials)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetSetting(ctx, store.SettingAuditPersonalCredentials, "false"))
	v, ok, err := s.GetSetting(ctx, store.SettingAuditPersonalCredentials)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", v)

	all, err := s.ListSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFailOn(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailOn("SaveAuditLog", boom)
	assert.ErrorIs(t, s.SaveAuditLog(context.Background(), &model.AuditLog{}), boom)

	s.FailOn("SaveAuditLog", nil)
	assert.NoError(t, s.SaveAuditLog(context.Background(), &model.AuditLog{}))
}
