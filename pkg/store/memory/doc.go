// Package memory provides an in-memory implementation of the store
// interfaces. It backs unit tests and the server's --memory development mode.
// Data is lost when the process exits.
package memory
