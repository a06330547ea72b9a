// Package config provides configuration management for credvault.
//
// Configuration is layered: built-in defaults, then the YAML file at
// $CREDVAULT_CONFIG_PATH/credvault.yml, then CREDVAULT_* environment
// variables. The source of every attribute is tracked and shown by
// `vaultctl configuration show`.
//
// Secrets are never read from the file:
//
//   - CREDVAULT_DATA_KEY: base64 data key for field and content encryption
//   - CREDVAULT_JWT_SECRET: HMAC secret for bearer tokens
//   - DATABASE_URL: Postgres connection string
package config
