package store

import (
	"context"

	"github.com/doodlesbykumbi/credvault/pkg/model"
)

// SettingAuditPersonalCredentials controls whether actions on personal
// credentials are written to the audit trail.
const SettingAuditPersonalCredentials = "audit_personal_credentials"

// SettingsStore abstracts runtime policy values.
type SettingsStore interface {
	// GetSetting returns the value of key and whether it is set.
	GetSetting(ctx context.Context, key string) (string, bool, error)

	// SetSetting creates or replaces the value of key.
	SetSetting(ctx context.Context, key, value string) error

	// ListSettings returns every stored setting ordered by key.
	ListSettings(ctx context.Context) ([]model.Setting, error)
}
