package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
  path: test.db
jwt:
  secret: short
  expire_hours: 2
storage:
  type: minio
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 50, cfg.Gamification.DefaultCoursePoints)
	assert.Equal(t, 100, cfg.Gamification.CertificationPoints)
	assert.Equal(t, "@every 1h", cfg.Scheduler.MaintenanceCron)
	assert.Equal(t, 1, cfg.Seed.Version)
}

func TestLoadConfigRejectsShortSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
database:
  driver: sqlite
jwt:
  secret: too-short
storage:
  type: minio
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: oracle
storage:
  type: minio
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
