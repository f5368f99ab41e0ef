package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LLM.Model, cfg.LLM.Model)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Browser.SearchEngineURL, cfg.Browser.SearchEngineURL)
}

func TestLoad_ParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: custom-model\nbrowser:\n  headless: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-model", cfg.LLM.Model)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoad_EnvOverridesApplyAfterYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: yaml-model\n"), 0o644))
	t.Setenv("HANDSFREE_LLM_MODEL", "env-model")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.LLM.Model)
}

func TestSave_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.LLM.Model = "saved-model"

	require.NoError(t, Save(path, cfg))
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-model", reloaded.LLM.Model)
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "file.json")
	require.NoError(t, AtomicWriteFile(path, []byte("{}")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
