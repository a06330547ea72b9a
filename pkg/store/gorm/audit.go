package gorm

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/credvault/pkg/model"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// Ensure AuditStore implements store.AuditStore
var _ store.AuditStore = (*AuditStore)(nil)

// AuditStore implements store.AuditStore using GORM
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore creates a new AuditStore
func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// SaveAuditLog appends a row.
func (s *AuditStore) SaveAuditLog(ctx context.Context, entry *model.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// QueryAuditLogs returns one page of rows and the total number matching.
func (s *AuditStore) QueryAuditLogs(ctx context.Context, q store.AuditQuery) ([]model.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.AuditLog{})

	if q.ActorName != "" {
		query = query.Where("LOWER(actor_name) = LOWER(?)", q.ActorName)
	}
	if q.Action != "" {
		query = query.Where("action = ?", strings.ToUpper(q.Action))
	}
	if q.From != nil {
		query = query.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("created_at <= ?", *q.To)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query = query.Where(
			"(action ILIKE @p OR source_address ILIKE @p OR actor_name ILIKE @p OR credential_name ILIKE @p)",
			map[string]interface{}{"p": pattern},
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	column, ok := store.AuditSortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	query = query.Order(fmt.Sprintf("%s %s", column, direction)).Order("id")

	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	var rows []model.AuditLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}
	return rows, total, nil
}
