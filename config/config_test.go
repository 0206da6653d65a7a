package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5600/mcp", cfg.ServerURL)
	assert.Equal(t, "qwen2.5-coder:7b", cfg.Model)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, 0.0, cfg.Temperature)
	assert.Equal(t, 50, cfg.MaxSteps)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WEBPILOT_SERVER_URL", "http://automation:9000/mcp")
	t.Setenv("WEBPILOT_MAX_STEPS", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://automation:9000/mcp", cfg.ServerURL)
	assert.Equal(t, 5, cfg.MaxSteps)
}

func TestLoadLegacyModelEnv(t *testing.T) {
	t.Setenv("OLLAMA_MODEL", "llama3.1:8b")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "llama3.1:8b", cfg.Model)
}

func TestLoadPrefixedModelWinsOverLegacy(t *testing.T) {
	t.Setenv("WEBPILOT_MODEL", "qwen2.5-coder:14b")
	t.Setenv("OLLAMA_MODEL", "llama3.1:8b")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-coder:14b", cfg.Model)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webpilot.yaml")
	body := "server_url: http://filehost:5600/mcp\nmax_steps: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://filehost:5600/mcp", cfg.ServerURL)
	assert.Equal(t, 10, cfg.MaxSteps)
	// Untouched keys keep defaults.
	assert.Equal(t, "qwen2.5-coder:7b", cfg.Model)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			ServerURL:   "http://localhost:5600/mcp",
			Model:       "qwen2.5-coder:7b",
			Temperature: 0,
			MaxSteps:    50,
		}
	}

	good := base()
	assert.NoError(t, good.Validate())

	noURL := base()
	noURL.ServerURL = ""
	assert.Error(t, noURL.Validate())

	noModel := base()
	noModel.Model = ""
	assert.Error(t, noModel.Validate())

	badSteps := base()
	badSteps.MaxSteps = 0
	assert.Error(t, badSteps.Validate())

	badTemp := base()
	badTemp.Temperature = 3.5
	assert.Error(t, badTemp.Validate())
}
