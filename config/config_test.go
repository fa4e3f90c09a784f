package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "DEEPSEEK_API_KEY"} {
		t.Setenv(k, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "gpt-4o", cfg.DefaultModel)
	assert.Equal(t, 5*time.Minute, cfg.HTTPTimeout)
	assert.Equal(t, filepath.Join(home, ".conjure", "conjure.db"), cfg.DatabasePath)
	assert.Error(t, cfg.ValidateServer())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, "cfg")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
default_model: claude-3-7-sonnet-20250219
http_timeout: 30s
listen_addr: ":9000"
`), 0644))
	t.Setenv("CONJURE_LISTEN_ADDR", ":9100")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "claude-3-7-sonnet-20250219", cfg.DefaultModel)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, "sk-ant", cfg.AnthropicAPIKey)
	assert.NoError(t, cfg.ValidateServer())
	assert.Equal(t, "sk-ant", cfg.LlmConfig().AnthropicKey)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".env"), []byte("GEMINI_API_KEY=from-dotenv\n"), 0644))
	os.Unsetenv("GEMINI_API_KEY")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.GeminiAPIKey)
	os.Unsetenv("GEMINI_API_KEY")
}

func TestLoadConfig_InvalidModel(t *testing.T) {
	isolate(t)
	t.Setenv("CONJURE_DEFAULT_MODEL", "gpt-9")

	_, err := LoadConfig("")
	assert.EqualError(t, err, `unknown default model "gpt-9"`)
}
