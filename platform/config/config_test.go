package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/leaddesk")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("ELASTICSEARCH_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
	assert.False(t, cfg.IsSearchEnabled())
	assert.Equal(t, "leaddesk", cfg.GetSearchIndexPrefix())
	assert.Equal(t, 2*time.Second, cfg.GetSearchPingTimeout())
	assert.Equal(t, 15*time.Minute, cfg.GetDiscountCleanupInterval())
	assert.Equal(t, time.UTC, cfg.GetBusinessLocation())
	assert.Equal(t, "IN", cfg.GetDefaultPhoneRegion())
}

func TestLoadSearchSettings(t *testing.T) {
	setRequired(t)
	t.Setenv("ELASTICSEARCH_URL", "http://es1:9200, http://es2:9200")
	t.Setenv("SEARCH_SYNC_BACKOFF", "2s")
	t.Setenv("BUSINESS_TIMEZONE", "Asia/Kolkata")
	t.Setenv("DEFAULT_PHONE_REGION", "gb")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsSearchEnabled())
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.GetElasticsearchURLs())
	assert.Equal(t, 2*time.Second, cfg.GetSearchSyncBackoff())
	assert.Equal(t, "Asia/Kolkata", cfg.GetBusinessLocation().String())
	assert.Equal(t, "GB", cfg.GetDefaultPhoneRegion())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownTimeZone(t *testing.T) {
	setRequired(t)
	t.Setenv("BUSINESS_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	_, err := Load()
	assert.Error(t, err)
}
