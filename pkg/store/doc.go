// Package store defines the storage interfaces used by the vault.
//
// These interfaces abstract the database operations, allowing for:
//   - Easier unit testing with the in-memory implementation in store/memory
//   - Clear separation between business logic and data access
//
// The primary implementation using GORM is in the store/gorm subpackage.
//
// # Interfaces
//
//   - CredentialsStore: master records, payloads and shares
//   - MembershipsStore: users, roles and scoped group memberships
//   - AccessPolicyStore: transactional writes of users, groups and memberships
//   - AuditStore: append-only audit rows and their query path
//   - SettingsStore: runtime policy values
//   - HealthStore: database connectivity checks
package store
