package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jlebervet/mail-manager/internal/config"
)

func newTestRouterConfig(t *testing.T) *RouterConfig {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return &RouterConfig{
		DB: db,
		Config: &config.Config{
			JWTSecret:         "test-secret",
			SessionTTL:        time.Hour,
			RateLimitRequests: 10,
			RateLimitBurst:    20,
		},
	}
}

func TestNewRouter_RegistersExpectedRoutes(t *testing.T) {
	// Arrange
	e := NewRouter(newTestRouterConfig(t))

	routes := make(map[string]bool)
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}

	// Assert: the register's surface, including the archive-cascade alias
	expected := []string{
		"GET /health",
		"POST /api/auth/login",
		"GET /api/auth/me",
		"GET /api/mails",
		"POST /api/mails",
		"GET /api/mails/:id",
		"POST /api/services/:id/archive",
		"DELETE /api/services/:id",
		"POST /api/services/:id/restore",
		"POST /api/import/csv",
		"GET /api/stats",
	}
	for _, route := range expected {
		assert.True(t, routes[route], "missing route %s", route)
	}
}

func TestNewRouter_SkipsEventStreamWithoutHub(t *testing.T) {
	e := NewRouter(newTestRouterConfig(t))

	for _, r := range e.Routes() {
		assert.NotEqual(t, "/api/ws", r.Path)
	}
}
