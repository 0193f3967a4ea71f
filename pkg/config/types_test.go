package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLogConfig_UnmarshalYAML(t *testing.T) {
	var cfg LogConfig
	err := yaml.Unmarshal([]byte("level: debug\nformat: json\n"), &cfg)
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, cfg.Level)
	assert.Equal(t, LogFormatJSON, cfg.Format)
}

func TestRunDefaults_UnmarshalYAML(t *testing.T) {
	var d RunDefaults
	err := yaml.Unmarshal([]byte("agent: scripted\nseed: 42\nconcurrency: 4\nruns_per_second: 2.5\n"), &d)
	require.NoError(t, err)
	assert.Equal(t, "scripted", d.Agent)
	require.NotNil(t, d.Seed)
	assert.Equal(t, uint64(42), *d.Seed)
	assert.Equal(t, 4, d.Concurrency)
	assert.Equal(t, 2.5, d.RunsPerSecond)
}

func TestRunDefaults_SeedOmittedStaysNil(t *testing.T) {
	var d RunDefaults
	err := yaml.Unmarshal([]byte("agent: random\n"), &d)
	require.NoError(t, err)
	assert.Nil(t, d.Seed)
}
