package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_DefaultsWhenNoFile(t *testing.T) {
	configDir := t.TempDir()

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"."}, cfg.Biospec.Roots)
	assert.Equal(t, LogLevelInfo, cfg.Biospec.Log.Level)
	assert.Equal(t, "random", cfg.Biospec.Defaults.Agent)
	assert.Equal(t, 1, cfg.Stats().Roots)
}

func TestInitialize_FileOverridesDefaults(t *testing.T) {
	configDir := t.TempDir()
	scenarioDir := filepath.Join(configDir, "scenarios")
	require.NoError(t, os.Mkdir(scenarioDir, 0o755))

	content := "roots: [\"" + scenarioDir + "\"]\nlog:\n  level: debug\ndefaults:\n  agent: scripted\n  concurrency: 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "biospec.yaml"), []byte(content), 0o644))

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)

	assert.Equal(t, []string{scenarioDir}, cfg.Biospec.Roots)
	assert.Equal(t, LogLevelDebug, cfg.Biospec.Log.Level)
	// Format was left unset in the file, so the default survives the merge.
	assert.Equal(t, LogFormatText, cfg.Biospec.Log.Format)
	assert.Equal(t, "scripted", cfg.Biospec.Defaults.Agent)
	assert.Equal(t, 4, cfg.Biospec.Defaults.Concurrency)
}

func TestInitialize_ExpandsEnvVars(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("BIOSPEC_ROOT", configDir)

	content := "roots: [\"${BIOSPEC_ROOT}\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "biospec.yaml"), []byte(content), 0o644))

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)
	assert.Equal(t, []string{configDir}, cfg.Biospec.Roots)
}

func TestInitialize_InvalidRootFails(t *testing.T) {
	configDir := t.TempDir()
	content := "roots: [\"./does-not-exist\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "biospec.yaml"), []byte(content), 0o644))

	_, err := Initialize(context.Background(), configDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roots validation failed")
}

func TestInitialize_MalformedYAMLFails(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "biospec.yaml"), []byte("roots: [unterminated"), 0o644))

	_, err := Initialize(context.Background(), configDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
