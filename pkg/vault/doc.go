// Package vault is the only code that reads or writes secret credential bytes.
//
// A [Service] validates typed payloads, asks the access guard whether the
// caller may act, encrypts secret fields before they reach the store and
// decrypts them only after authorization. Master record and payload are
// always written in one store transaction; the audit entry is recorded after
// the transaction commits and its failure never undoes the write.
//
// Read denial is reported as [ErrNotFound], which hides whether the credential
// exists. Mutating a visible credential without the right is [ErrUnauthorized].
// Delete skips the visibility step for shared credentials, so a caller who is
// neither owner nor admin gets [ErrUnauthorized] there as well.
package vault
