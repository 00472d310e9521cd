package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ESCALATION_MIN_HOURS", "")
	t.Setenv("UPLOAD_MAX_BYTES", "")
	t.Setenv("UPLOAD_MAX_FILES", "")
	t.Setenv("OBJECT_STORAGE_BUCKET", "")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 48*time.Hour, cfg.Escalation.MinAge())
	assert.Equal(t, int64(5*1024*1024), cfg.Uploads.MaxBytes)
	assert.Equal(t, 3, cfg.Uploads.MaxFiles)
	assert.Equal(t, "issue-proofs", cfg.Uploads.Bucket)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/feedx-test.db")
	t.Setenv("ESCALATION_MIN_HOURS", "72")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("UPLOAD_MAX_FILES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/feedx-test.db", cfg.SQLite.Path)
	assert.Equal(t, 72*time.Hour, cfg.Escalation.MinAge())
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.Equal(t, 3, cfg.Uploads.MaxFiles)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("REDIS_DB", "")
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REDIS_DB", "zero")
	_, err = Load()
	assert.Error(t, err)
}

func TestEscalationMinAgeFallback(t *testing.T) {
	assert.Equal(t, 48*time.Hour, EscalationConfig{MinHours: -1}.MinAge())
}
