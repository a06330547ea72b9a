package model

//go:generate go run github.com/dmarkham/enumer -type CredentialType -linecomment -json -yaml -sql -output credential_type.gen.go

// CredentialType selects the payload variant of a credential.
type CredentialType int

const (
	CredentialTypePassword   CredentialType = iota // PASSWORD
	CredentialTypeAPIOAuth                         // API_OAUTH
	CredentialTypeKeyCert                          // KEY_CERT
	CredentialTypeToken                            // TOKEN
	CredentialTypeSecureNote                       // SECURE_NOTE
	CredentialTypeFile                             // FILE
)
