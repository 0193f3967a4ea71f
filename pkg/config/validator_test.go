package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Biospec: &BiospecConfig{
			Roots:    []string{t.TempDir()},
			Log:      LogConfig{Level: LogLevelInfo, Format: LogFormatText},
			Defaults: RunDefaults{Agent: "random", Concurrency: 1},
		},
	}
}

func TestValidateAll_Valid(t *testing.T) {
	require.NoError(t, NewValidator(validConfig(t)).ValidateAll())
}

func TestValidateRoots_MissingDirectory(t *testing.T) {
	cfg := validConfig(t)
	cfg.Biospec.Roots = []string{"/definitely/does/not/exist"}
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roots validation failed")
}

func TestValidateRoots_NotADirectory(t *testing.T) {
	cfg := validConfig(t)
	file := cfg.Biospec.Roots[0] + "/not-a-dir.yaml"
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.Biospec.Roots = []string{file}

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestValidateLog_InvalidLevel(t *testing.T) {
	cfg := validConfig(t)
	cfg.Biospec.Log.Level = LogLevel("trace")
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log validation failed")
}

func TestValidateLog_InvalidFormat(t *testing.T) {
	cfg := validConfig(t)
	cfg.Biospec.Log.Format = LogFormat("xml")
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log validation failed")
}

func TestValidateDefaults_NegativeConcurrency(t *testing.T) {
	cfg := validConfig(t)
	cfg.Biospec.Defaults.Concurrency = -1
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaults validation failed")
}

func TestValidateDefaults_NegativeRunsPerSecond(t *testing.T) {
	cfg := validConfig(t)
	cfg.Biospec.Defaults.RunsPerSecond = -0.5
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaults validation failed")
}
