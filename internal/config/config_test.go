package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs Load from an empty directory so no config.yaml is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) }) //nolint:errcheck
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Monitor.CategoryIDs)
	assert.Equal(t, 2, cfg.Monitor.RequestDelaySecs)
	assert.Equal(t, 3, cfg.Monitor.MaxRetries)
	assert.Equal(t, 30, cfg.Monitor.TimeoutSecs)
	assert.Equal(t, "https://opsportal.spp.org", cfg.Portal.BaseURL)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.UseTLS)
	assert.Equal(t, "https://api.twilio.com", cfg.Twilio.BaseURL)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "data/seen_studies.json", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigFileOverrides(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
monitor:
  category_ids: [243, 244]
  request_delay_secs: 5
portal:
  base_url: https://portal.test
notify:
  email_recipients:
    - ops@example.com
store:
  driver: sqlite
  path: /tmp/seen.db
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{243, 244}, cfg.Monitor.CategoryIDs)
	assert.Equal(t, 5, cfg.Monitor.RequestDelaySecs)
	assert.Equal(t, 3, cfg.Monitor.MaxRetries) // untouched default
	assert.Equal(t, "https://portal.test", cfg.Portal.BaseURL)
	assert.Equal(t, []string{"ops@example.com"}, cfg.Notify.EmailRecipients)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/seen.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{{nope"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}
