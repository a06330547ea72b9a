// Command vaultctl runs the credvault server and its administrative tasks.
//
// # Quick Start
//
//	# Generate a data key for encryption
//	vaultctl data-key generate > data_key
//	export CREDVAULT_DATA_KEY=$(cat data_key)
//	export CREDVAULT_JWT_SECRET=$(vaultctl data-key generate)
//
//	# Run database migrations
//	vaultctl db migrate
//
//	# Load users, groups and memberships
//	vaultctl policy load access.yml
//
//	# Start the server
//	vaultctl server
//
// Configuration is read from /etc/credvault/credvault.yml (or
// CREDVAULT_CONFIG_PATH) and CREDVAULT_* environment variables. See
// "vaultctl configuration show".
package main
