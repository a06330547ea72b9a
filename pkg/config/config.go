package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/credvault"
	ConfigFileName    = "credvault.yml"
)

// Environment variables holding secrets.
const (
	EnvDataKey     = "CREDVAULT_DATA_KEY"
	EnvJWTSecret   = "CREDVAULT_JWT_SECRET"
	EnvDatabaseURL = "DATABASE_URL"
)

// ContentBackends lists the accepted content_backend values.
var ContentBackends = []string{"memory", "filesystem", "s3"}

// LogFormats lists the accepted log_format values.
var LogFormats = []string{"text", "json"}

// CredvaultConfig holds all credvault configuration settings
type CredvaultConfig struct {
	// Port is the HTTP listen port
	Port string `yaml:"port" json:"port"`

	// TrustedProxies is a list of CIDR ranges allowed to set X-Forwarded-For
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	// ListLimitDefault and ListLimitMax bound credential listings
	ListLimitDefault int `yaml:"list_limit_default" json:"list_limit_default"`
	ListLimitMax     int `yaml:"list_limit_max" json:"list_limit_max"`

	// AuditPageSizeDefault and AuditPageSizeMax bound audit queries
	AuditPageSizeDefault int `yaml:"audit_page_size_default" json:"audit_page_size_default"`
	AuditPageSizeMax     int `yaml:"audit_page_size_max" json:"audit_page_size_max"`

	// AuditPersonalCredentials applies while the runtime setting is unset
	AuditPersonalCredentials bool `yaml:"audit_personal_credentials" json:"audit_personal_credentials"`

	// SyslogEnabled mirrors audit entries to stderr as RFC 5424 messages
	SyslogEnabled bool `yaml:"syslog_enabled" json:"syslog_enabled"`

	// ContentBackend selects where FILE content is kept
	ContentBackend string `yaml:"content_backend" json:"content_backend"`
	ContentRoot    string `yaml:"content_root" json:"content_root"`

	S3Bucket       string `yaml:"s3_bucket" json:"s3_bucket"`
	S3Prefix       string `yaml:"s3_prefix" json:"s3_prefix"`
	S3Region       string `yaml:"s3_region" json:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint" json:"s3_endpoint"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style" json:"s3_use_path_style"`

	// JWTIssuer and JWTAudience are checked when set
	JWTIssuer   string `yaml:"jwt_issuer" json:"jwt_issuer"`
	JWTAudience string `yaml:"jwt_audience" json:"jwt_audience"`

	// DBMaxOpenConns and DBMaxIdleConns size the connection pool; zero keeps
	// the driver defaults
	DBMaxOpenConns int `yaml:"db_max_open_conns" json:"db_max_open_conns"`
	DBMaxIdleConns int `yaml:"db_max_idle_conns" json:"db_max_idle_conns"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *CredvaultConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *CredvaultConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *CredvaultConfig {
	return &CredvaultConfig{
		Port:                     "8000",
		TrustedProxies:           []string{},
		ListLimitDefault:         100,
		ListLimitMax:             500,
		AuditPageSizeDefault:     25,
		AuditPageSizeMax:         100,
		AuditPersonalCredentials: true,
		ContentBackend:           "filesystem",
		ContentRoot:              "/var/lib/credvault",
		LogLevel:                 "info",
		LogFormat:                "text",
		sources:                  make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*CredvaultConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("CREDVAULT_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig map[string]yaml.Node
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		if err := config.applyFileConfig(fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"port", "trusted_proxies",
		"list_limit_default", "list_limit_max",
		"audit_page_size_default", "audit_page_size_max",
		"audit_personal_credentials", "syslog_enabled",
		"content_backend", "content_root",
		"s3_bucket", "s3_prefix", "s3_region", "s3_endpoint", "s3_use_path_style",
		"jwt_issuer", "jwt_audience",
		"db_max_open_conns", "db_max_idle_conns",
		"log_level", "log_format",
	}
}

// fields maps attribute names to their destinations.
func (c *CredvaultConfig) fields() map[string]interface{} {
	return map[string]interface{}{
		"port":                       &c.Port,
		"trusted_proxies":            &c.TrustedProxies,
		"list_limit_default":         &c.ListLimitDefault,
		"list_limit_max":             &c.ListLimitMax,
		"audit_page_size_default":    &c.AuditPageSizeDefault,
		"audit_page_size_max":        &c.AuditPageSizeMax,
		"audit_personal_credentials": &c.AuditPersonalCredentials,
		"syslog_enabled":             &c.SyslogEnabled,
		"content_backend":            &c.ContentBackend,
		"content_root":               &c.ContentRoot,
		"s3_bucket":                  &c.S3Bucket,
		"s3_prefix":                  &c.S3Prefix,
		"s3_region":                  &c.S3Region,
		"s3_endpoint":                &c.S3Endpoint,
		"s3_use_path_style":          &c.S3UsePathStyle,
		"jwt_issuer":                 &c.JWTIssuer,
		"jwt_audience":               &c.JWTAudience,
		"db_max_open_conns":          &c.DBMaxOpenConns,
		"db_max_idle_conns":          &c.DBMaxIdleConns,
		"log_level":                  &c.LogLevel,
		"log_format":                 &c.LogFormat,
	}
}

// applyFileConfig decodes each key present in the file. Keys that are
// present win even when they hold a zero value, so a file can turn a
// default-on setting off.
func (c *CredvaultConfig) applyFileConfig(file map[string]yaml.Node) error {
	fields := c.fields()
	for name, node := range file {
		dest, ok := fields[name]
		if !ok {
			return fmt.Errorf("unknown attribute %q", name)
		}
		node := node
		if err := node.Decode(dest); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		c.sources[name] = "file"
	}
	return nil
}

func (c *CredvaultConfig) applyEnvConfig() {
	for name, dest := range c.fields() {
		val := os.Getenv("CREDVAULT_" + strings.ToUpper(name))
		if val == "" {
			continue
		}
		switch d := dest.(type) {
		case *string:
			*d = val
		case *[]string:
			*d = splitAndTrim(val)
		case *int:
			i, err := strconv.Atoi(val)
			if err != nil {
				continue
			}
			*d = i
		case *bool:
			*d = val == "true" || val == "1"
		}
		c.sources[name] = "environment"
	}
}

// ConfigFilePath returns the path to the config file
func (c *CredvaultConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *CredvaultConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// DataKey returns the base64 data key from the environment.
func (c *CredvaultConfig) DataKey() string {
	return os.Getenv(EnvDataKey)
}

// JWTSecret returns the token signing secret from the environment.
func (c *CredvaultConfig) JWTSecret() string {
	return os.Getenv(EnvJWTSecret)
}

// DatabaseURL returns the connection string from the environment.
func (c *CredvaultConfig) DatabaseURL() string {
	return os.Getenv(EnvDatabaseURL)
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *CredvaultConfig) IsTrustedProxy(ip string) bool {
	if len(c.TrustedProxies) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try as plain IP
			if plain := net.ParseIP(cidr); plain != nil && plain.Equal(parsedIP) {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *CredvaultConfig) Validate() error {
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}

	if c.ListLimitMax <= 0 {
		return fmt.Errorf("list_limit_max must be positive")
	}
	if c.ListLimitDefault <= 0 || c.ListLimitDefault > c.ListLimitMax {
		return fmt.Errorf("list_limit_default must be between 1 and list_limit_max")
	}
	if c.AuditPageSizeMax <= 0 {
		return fmt.Errorf("audit_page_size_max must be positive")
	}
	if c.AuditPageSizeDefault <= 0 || c.AuditPageSizeDefault > c.AuditPageSizeMax {
		return fmt.Errorf("audit_page_size_default must be between 1 and audit_page_size_max")
	}

	if !contains(ContentBackends, c.ContentBackend) {
		return fmt.Errorf("invalid content_backend: %s", c.ContentBackend)
	}
	if c.ContentBackend == "filesystem" && c.ContentRoot == "" {
		return fmt.Errorf("content_root is required for the filesystem backend")
	}
	if c.ContentBackend == "s3" && c.S3Bucket == "" {
		return fmt.Errorf("s3_bucket is required for the s3 backend")
	}
	if c.DBMaxOpenConns < 0 || c.DBMaxIdleConns < 0 {
		return fmt.Errorf("db_max_open_conns and db_max_idle_conns must not be negative")
	}
	if !contains(LogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log_format: %s", c.LogFormat)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *CredvaultConfig) Attributes() []Attribute {
	fields := c.fields()
	attrs := make([]Attribute, 0, len(fields))
	for _, name := range attributeNames() {
		var value string
		switch v := fields[name].(type) {
		case *string:
			value = *v
		case *[]string:
			value = strings.Join(*v, ",")
		case *int:
			value = strconv.Itoa(*v)
		case *bool:
			value = strconv.FormatBool(*v)
		}
		attrs = append(attrs, Attribute{Name: name, Value: value, Source: c.Source(name)})
	}
	for _, env := range []string{EnvDataKey, EnvJWTSecret, EnvDatabaseURL} {
		value := ""
		if os.Getenv(env) != "" {
			value = "(set)"
		}
		attrs = append(attrs, Attribute{Name: strings.ToLower(env), Value: value, Source: "environment"})
	}
	return attrs
}

// FormatText returns a text representation of the configuration
func (c *CredvaultConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-30s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-30s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-30s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *CredvaultConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
