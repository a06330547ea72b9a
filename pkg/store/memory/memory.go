package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

var (
	_ store.CredentialsStore  = (*Store)(nil)
	_ store.MembershipsStore  = (*Store)(nil)
	_ store.AccessPolicyStore = (*Store)(nil)
	_ store.AuditStore        = (*Store)(nil)
	_ store.SettingsStore     = (*Store)(nil)
	_ store.HealthStore       = (*Store)(nil)
)

// Store implements every store interface in memory. It is safe for
// concurrent use.
type Store struct {
	mu sync.RWMutex

	users       map[string]model.User
	groups      map[string]model.Group
	memberships map[string][]model.Membership

	credentials map[string]model.Credential
	payloads    map[string]model.PayloadRecord
	shares      map[string][]model.Share

	audit    []model.AuditLog
	settings map[string]model.Setting

	failures map[string]error
	now      func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:       make(map[string]model.User),
		groups:      make(map[string]model.Group),
		memberships: make(map[string][]model.Membership),
		credentials: make(map[string]model.Credential),
		payloads:    make(map[string]model.PayloadRecord),
		shares:      make(map[string][]model.Share),
		settings:    make(map[string]model.Setting),
		failures:    make(map[string]error),
		now:         time.Now,
	}
}

// FailOn makes every later call of the named method return err. A nil err
// clears the failure.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) failure(method string) error {
	return s.failures[method]
}

// CheckConnectivity always succeeds unless a failure was injected.
func (s *Store) CheckConnectivity(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure("CheckConnectivity")
}

// Credentials

func (s *Store) CreateCredential(ctx context.Context, cred *model.Credential, payload model.PayloadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateCredential"); err != nil {
		return err
	}
	if payload == nil || payload.CredentialType() != cred.Type {
		return store.ErrPayloadMissing
	}

	now := s.now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	if cred.Version == 0 {
		cred.Version = 1
	}
	payload.SetCredentialID(cred.ID)

	s.credentials[cred.ID] = *cred
	s.payloads[cred.ID] = clonePayload(payload)
	return nil
}

func (s *Store) FetchCredential(ctx context.Context, id string) (*model.Credential, model.PayloadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("FetchCredential"); err != nil {
		return nil, nil, err
	}

	cred, ok := s.credentials[id]
	if !ok {
		return nil, nil, store.ErrCredentialNotFound
	}
	payload, ok := s.payloads[id]
	if !ok {
		return nil, nil, store.ErrPayloadMissing
	}
	return &cred, clonePayload(payload), nil
}

func (s *Store) ListCredentials(ctx context.Context, filter store.CredentialFilter) ([]model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("ListCredentials"); err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	var out []model.Credential
	for id, c := range s.credentials {
		if !filter.Visible(c) {
			continue
		}
		if filter.Type != nil && c.Type != *filter.Type {
			continue
		}
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if filter.Environment != "" && c.Environment != filter.Environment {
			continue
		}
		if query != "" && !matches(query, searchable(c, s.payloads[id])) {
			continue
		}
		out = append(out, c)
	}

	sortCredentials(out, filter.SortBy, filter.Descending)
	return page(out, filter.Offset, filter.Limit), nil
}

func (s *Store) UpdateCredential(ctx context.Context, cred *model.Credential, expectedVersion int, payload model.PayloadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpdateCredential"); err != nil {
		return err
	}

	current, ok := s.credentials[cred.ID]
	if !ok {
		return store.ErrCredentialNotFound
	}
	if current.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	if payload == nil || payload.CredentialType() != cred.Type {
		return store.ErrPayloadMissing
	}

	cred.CreatedAt = current.CreatedAt
	cred.UpdatedAt = s.now()
	payload.SetCredentialID(cred.ID)

	s.credentials[cred.ID] = *cred
	s.payloads[cred.ID] = clonePayload(payload)
	return nil
}

func (s *Store) DeleteCredential(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("DeleteCredential"); err != nil {
		return err
	}

	if _, ok := s.credentials[id]; !ok {
		return store.ErrCredentialNotFound
	}
	delete(s.credentials, id)
	delete(s.payloads, id)
	delete(s.shares, id)
	for i := range s.audit {
		if s.audit[i].CredentialID != nil && *s.audit[i].CredentialID == id {
			s.audit[i].CredentialID = nil
		}
	}
	return nil
}

func (s *Store) CreateShare(ctx context.Context, share *model.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateShare"); err != nil {
		return err
	}
	if _, ok := s.credentials[share.CredentialID]; !ok {
		return store.ErrCredentialNotFound
	}

	if share.CreatedAt.IsZero() {
		share.CreatedAt = s.now()
	}
	existing := s.shares[share.CredentialID]
	for i, sh := range existing {
		if sh.UserID == share.UserID {
			existing[i] = *share
			return nil
		}
	}
	s.shares[share.CredentialID] = append(existing, *share)
	return nil
}

func (s *Store) ListShares(ctx context.Context, credentialID string) ([]model.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("ListShares"); err != nil {
		return nil, err
	}
	return append([]model.Share(nil), s.shares[credentialID]...), nil
}

// Users and memberships

func (s *Store) UserRole(ctx context.Context, userID string) (access.Role, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("UserRole"); err != nil {
		return access.RoleUser, false, err
	}
	u, ok := s.users[userID]
	if !ok {
		return access.RoleUser, false, nil
	}
	return u.Role, true, nil
}

func (s *Store) UserMemberships(ctx context.Context, userID string) ([]access.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("UserMemberships"); err != nil {
		return nil, err
	}

	var out []access.Membership
	for _, m := range s.memberships[userID] {
		m.Group = s.groups[m.GroupID]
		am, err := m.ToAccess()
		if err != nil {
			return nil, err
		}
		out = append(out, am)
	}
	return out, nil
}

func (s *Store) FetchUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("FetchUser"); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

// Transaction restores users, groups and memberships if fn fails.
func (s *Store) Transaction(ctx context.Context, fn func(store.AccessPolicyStore) error) error {
	s.mu.RLock()
	users := copyMap(s.users)
	groups := copyMap(s.groups)
	memberships := copyMap(s.memberships)
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users, s.groups, s.memberships = users, groups, memberships
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) UpsertUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpsertUser"); err != nil {
		return err
	}
	now := s.now()
	if existing, ok := s.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *Store) UpsertGroup(ctx context.Context, group *model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpsertGroup"); err != nil {
		return err
	}
	now := s.now()
	if existing, ok := s.groups[group.ID]; ok {
		group.CreatedAt = existing.CreatedAt
	} else {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	s.groups[group.ID] = *group
	return nil
}

func (s *Store) ReplaceMemberships(ctx context.Context, userID string, memberships []model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ReplaceMemberships"); err != nil {
		return err
	}
	if _, ok := s.users[userID]; !ok {
		return store.ErrUserNotFound
	}
	out := make([]model.Membership, len(memberships))
	for i, m := range memberships {
		m.UserID = userID
		m.Scopes = append([]model.MembershipScope(nil), m.Scopes...)
		out[i] = m
	}
	s.memberships[userID] = out
	return nil
}

// Audit

func (s *Store) SaveAuditLog(ctx context.Context, entry *model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SaveAuditLog"); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	row := *entry
	row.Change = append([]byte(nil), entry.Change...)
	s.audit = append(s.audit, row)
	return nil
}

func (s *Store) QueryAuditLogs(ctx context.Context, q store.AuditQuery) ([]model.AuditLog, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("QueryAuditLogs"); err != nil {
		return nil, 0, err
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	var rows []model.AuditLog
	for _, row := range s.audit {
		if q.ActorName != "" && !strings.EqualFold(row.ActorName, q.ActorName) {
			continue
		}
		if q.Action != "" && !strings.EqualFold(row.Action, q.Action) {
			continue
		}
		if q.From != nil && row.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && row.CreatedAt.After(*q.To) {
			continue
		}
		if search != "" && !matches(search, []string{row.Action, row.SourceAddress, row.ActorName, row.CredentialName}) {
			continue
		}
		rows = append(rows, row)
	}

	sortAudit(rows, q.SortBy, q.Descending)
	return page(rows, q.Offset, q.Limit), int64(len(rows)), nil
}

// AuditRows returns every stored audit row in insertion order.
func (s *Store) AuditRows() []model.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.AuditLog(nil), s.audit...)
}

// Settings

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("GetSetting"); err != nil {
		return "", false, err
	}
	setting, ok := s.settings[key]
	return setting.Value, ok, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("SetSetting"); err != nil {
		return err
	}
	s.settings[key] = model.Setting{Key: key, Value: value, UpdatedAt: s.now()}
	return nil
}

func (s *Store) ListSettings(ctx context.Context) ([]model.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("ListSettings"); err != nil {
		return nil, err
	}
	out := make([]model.Setting, 0, len(s.settings))
	for _, setting := range s.settings {
		out = append(out, setting)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
