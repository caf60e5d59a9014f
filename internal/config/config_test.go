package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("BUCKET", "cartoons")
	t.Setenv("BASE_URL", "https://cartoons.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.EqualValues(t, 10<<20, cfg.MaxUploadBytes)
	assert.Equal(t, "gemini-2.0-flash-exp", cfg.Gemini.Model)
	assert.Equal(t, "secret", cfg.Gemini.APIKey)
	assert.True(t, cfg.Share.Enabled())
	assert.False(t, cfg.Telegram.Enabled())
	assert.False(t, cfg.Reddit.Enabled())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: local
addr: ":9000"
gemini:
  api_key_param: /cartoonbot/gemini
  model: gemini-2.5-flash-image
telegram:
  token: tok
  chat_id: -100123
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/cartoonbot/gemini", cfg.Gemini.APIKeyParam)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.Gemini.Model)
	assert.True(t, cfg.Telegram.Enabled())
	assert.False(t, cfg.Share.Enabled())
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY_PARAM", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestShareNeedsBaseURL(t *testing.T) {
	assert.False(t, Share{Dir: "/tmp/shares"}.Enabled())
	assert.True(t, Share{Dir: "/tmp/shares", BaseURL: "http://localhost:8080/shared"}.Enabled())
}

func TestShareLocalPath(t *testing.T) {
	assert.Equal(t, "/shared", Share{Dir: "/tmp/s", BaseURL: "http://localhost:8080/shared/"}.LocalPath())
	assert.Equal(t, "", Share{Bucket: "b", Dir: "/tmp/s", BaseURL: "https://cdn.example.com"}.LocalPath())
	assert.Equal(t, "", Share{BaseURL: "https://cdn.example.com/x"}.LocalPath())
}

func TestLoadRejectsRootBaseURLForLocalShares(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("SHARE_DIR", t.TempDir())
	t.Setenv("BASE_URL", "http://localhost:8080")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BASE_URL")
}
