package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestConnectRequiresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Connect(Config{})
	assert.EqualError(t, err, "DATABASE_URL environment variable is required")
}

func TestLogMode(t *testing.T) {
	t.Setenv("CREDVAULT_LOG_LEVEL", "")
	assert.Equal(t, logger.Silent, logMode(false))
	assert.Equal(t, logger.Info, logMode(true))

	t.Setenv("CREDVAULT_LOG_LEVEL", "debug")
	assert.Equal(t, logger.Info, logMode(false))
}

func TestURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/credvault")
	assert.Equal(t, "postgres://localhost/credvault", URL())
}
