package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `bind_addr: "0.0.0.0"
port: "9090"
env: "test"

upload_dir: "test_uploads"
export_dir: "test_exports"

database:
  host: "db.internal"
  port: 5433
  user: "auditor"
  database: "vault_audit_test"
`

func writeConfig(t *testing.T, content string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	t.Chdir(dir)
}

func TestLoad(t *testing.T) {
	writeConfig(t, testYAML)

	cfg, err := Load("1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "0.0.0.0", cfg.BindAddr)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)

	// Unset fields fall back to defaults.
	assert.Equal(t, int64(16777216), cfg.MaxUploadBytes)
	assert.Equal(t, "migrations", cfg.MigrationsPath)

	// The upload and export directories are created on load.
	assert.DirExists(t, cfg.UploadDir)
	assert.DirExists(t, cfg.ExportDir)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	writeConfig(t, testYAML)
	t.Setenv("PORT", "7070")
	t.Setenv("PGHOST", "env-host")
	t.Setenv("PGPASSWORD", "s3cret")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("dev")
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "vaultaudit",
		Password: "pw",
		Database: "vault_audit",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=vaultaudit password=pw dbname=vault_audit sslmode=disable",
		cfg.ConnectionString())
}
