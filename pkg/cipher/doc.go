// Package cipher implements the vault's encryption at rest.
//
// Values are sealed with AES-256-GCM and packed as
//
//	'G' | tag (16 bytes) | iv (12 bytes) | ciphertext
//
// Additional authenticated data binds each ciphertext to the place it is
// stored, so a value copied from one credential field to another fails to
// decrypt. See FieldAAD and ContentAAD.
//
// A single data key is configured per deployment. NewKeyring derives one
// subkey for credential fields and one for file content from it with HKDF.
package cipher
