// Package audit records the trail of security-relevant vault actions.
//
// Every entry carries an [Action], the acting user, the credential it
// concerns (if any), the caller's source address and a [Change] payload.
// The producer picks the shape of the change:
//
//   - [Paired] for field-level updates
//   - [Snapshot] for whole-record creation and deletion
//   - [Scalar] for free-form descriptions
//
// Readers decode stored payloads with [DecodeChange], which degrades to
// [Raw] when a payload cannot be classified, and render any shape with
// [Render].
//
// # Recording
//
// [Recorder.Record] appends to the audit store and never returns an error:
// failures are logged and counted. Entries can additionally be mirrored as
// RFC5424 syslog lines through a [Logger].
//
//	recorder.Record(ctx, audit.Entry{
//		Action:         audit.ActionView,
//		ActorID:        caller.UserID,
//		CredentialID:   cred.ID,
//		CredentialName: cred.Name,
//		Change:         audit.Scalar{Text: "viewed credential"},
//		SourceAddress:  caller.RemoteIP,
//	})
package audit
