// Package model defines the database models for the credential vault.
//
// # Core Models
//
//   - User: an identity known to the vault, with its platform role
//   - Group: a named bundle of actions
//   - Membership: binds a user to a group, optionally scoped by MembershipScope rows
//   - Credential: the master record of a stored secret
//   - Payload records: one table per credential type holding the typed fields
//   - Share: a point grant of one credential to one user
//   - AuditLog: an append-only record of a security relevant action
//   - Setting: a runtime policy value
//
// Secret payload columns hold ciphertext produced by package cipher. Models
// never encrypt or decrypt on their own; the vault does that once a caller
// has been authorized.
package model
