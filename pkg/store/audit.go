package store

import (
	"context"
	"time"

	"github.com/doodlesbykumbi/credvault/pkg/model"
)

// Sortable audit columns.
var AuditSortColumns = map[string]string{
	"timestamp":  "created_at",
	"actor":      "actor_name",
	"action":     "action",
	"credential": "credential_name",
}

// AuditQuery selects a page of audit rows.
type AuditQuery struct {
	ActorName string
	Action    string
	Search    string
	From      *time.Time
	To        *time.Time

	SortBy     string
	Descending bool
	Limit      int
	Offset     int
}

// AuditStore abstracts audit persistence. Rows are never updated or deleted.
type AuditStore interface {
	// SaveAuditLog appends a row.
	SaveAuditLog(ctx context.Context, entry *model.AuditLog) error

	// QueryAuditLogs returns one page of rows and the total number matching.
	QueryAuditLogs(ctx context.Context, q AuditQuery) ([]model.AuditLog, int64, error)
}
