package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "INR", cfg.Escrow.Currency)
	assert.Equal(t, 10, cfg.Escrow.MaxEvidenceItems)
	assert.Equal(t, time.Minute, cfg.Escrow.StatisticsCacheTTL)
	assert.Equal(t, []string{"*"}, cfg.Security.CORSAllowedOrigins)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ESCROW_ADMIN_UPI_ID", "ops@okbank")
	t.Setenv("ESCROW_STATS_CACHE_TTL", "5s")
	t.Setenv("ESCROW_COMPLAINT_SMS", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ESCROW_MAX_EVIDENCE_ITEMS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "ops@okbank", cfg.Escrow.AdminUPIID)
	assert.Equal(t, 5*time.Second, cfg.Escrow.StatisticsCacheTTL)
	assert.False(t, cfg.Escrow.ComplaintSMS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
	assert.Equal(t, 10, cfg.Escrow.MaxEvidenceItems)
}

func TestIsProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	assert.True(t, IsProduction())
	assert.False(t, IsTest())
}
