package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0o600))
	t.Setenv("CREDVAULT_CONFIG_PATH", dir)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CREDVAULT_CONFIG_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 100, cfg.ListLimitDefault)
	assert.Equal(t, 500, cfg.ListLimitMax)
	assert.True(t, cfg.AuditPersonalCredentials)
	assert.Equal(t, "default", cfg.Source("list_limit_max"))
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnvironment(t *testing.T) {
	writeConfig(t, `
list_limit_max: 50
list_limit_default: 20
audit_personal_credentials: false
trusted_proxies: [10.0.0.0/8]
content_backend: memory
`)
	t.Setenv("CREDVAULT_LIST_LIMIT_DEFAULT", "10")
	t.Setenv("CREDVAULT_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.ListLimitMax)
	assert.Equal(t, "file", cfg.Source("list_limit_max"))
	assert.Equal(t, 10, cfg.ListLimitDefault)
	assert.Equal(t, "environment", cfg.Source("list_limit_default"))
	assert.False(t, cfg.AuditPersonalCredentials)
	assert.Equal(t, "file", cfg.Source("audit_personal_credentials"))
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.TrustedProxies)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsUnknownFileAttribute(t *testing.T) {
	writeConfig(t, "list_limit: 5\n")
	_, err := Load()
	assert.ErrorContains(t, err, "unknown attribute")
}

func TestLoadIgnoresMalformedEnvironmentNumbers(t *testing.T) {
	t.Setenv("CREDVAULT_CONFIG_PATH", t.TempDir())
	t.Setenv("CREDVAULT_LIST_LIMIT_MAX", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ListLimitMax)
	assert.Equal(t, "default", cfg.Source("list_limit_max"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CredvaultConfig)
		err    string
	}{
		{"bad proxy", func(c *CredvaultConfig) { c.TrustedProxies = []string{"nope"} }, "trusted_proxies"},
		{"default over max", func(c *CredvaultConfig) { c.ListLimitDefault = 501 }, "list_limit_default"},
		{"audit page size", func(c *CredvaultConfig) { c.AuditPageSizeDefault = 0 }, "audit_page_size_default"},
		{"backend", func(c *CredvaultConfig) { c.ContentBackend = "tape" }, "content_backend"},
		{"s3 bucket", func(c *CredvaultConfig) { c.ContentBackend = "s3" }, "s3_bucket"},
		{"log format", func(c *CredvaultConfig) { c.LogFormat = "xml" }, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefault()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.err)
		})
	}
}

func TestIsTrustedProxy(t *testing.T) {
	cfg := newDefault()
	assert.False(t, cfg.IsTrustedProxy("10.1.2.3"))

	cfg.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.5"}
	assert.True(t, cfg.IsTrustedProxy("10.1.2.3"))
	assert.True(t, cfg.IsTrustedProxy("192.168.1.5"))
	assert.False(t, cfg.IsTrustedProxy("192.168.1.6"))
	assert.False(t, cfg.IsTrustedProxy("not-an-ip"))
}

func TestAttributesHideSecrets(t *testing.T) {
	t.Setenv(EnvDataKey, "c2VjcmV0")
	cfg := newDefault()

	out, err := cfg.FormatJSON()
	require.NoError(t, err)
	assert.NotContains(t, out, "c2VjcmV0")

	var parsed struct {
		Attributes []Attribute `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	var found bool
	for _, a := range parsed.Attributes {
		if a.Name == "credvault_data_key" {
			found = true
			assert.Equal(t, "(set)", a.Value)
		}
	}
	assert.True(t, found)
	assert.Contains(t, cfg.FormatText(), "list_limit_max")
}
