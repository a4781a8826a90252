package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Client.ReconnectAttempts)
	assert.Equal(t, time.Second, cfg.Client.ReconnectDelay)
	assert.Equal(t, 20*time.Second, cfg.Client.ConnectTimeout)
	assert.Equal(t, 50, cfg.Server.HistoryLimit)
}

func TestLoadFileThenEnv(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
client:
  server_url: http://chat.example:3000/
  reconnect_attempts: 2
  typing_expiry: 5s
server:
  port: 4000
`), 0o600))
	t.Setenv("CHAT_RECONNECT_ATTEMPTS", "9")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_DB", "rooms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://chat.example:3000/", cfg.Client.ServerURL)
	assert.Equal(t, 9, cfg.Client.ReconnectAttempts)
	assert.Equal(t, 5*time.Second, cfg.Client.TypingExpiry)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "postgres://postgres:postgres@db:5432/rooms?sslmode=disable", cfg.Server.DatabaseURL)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Client.AckTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Client.ReconnectAttempts = -1
	assert.Error(t, cfg.Validate())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
