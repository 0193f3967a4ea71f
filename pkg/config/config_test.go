package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigConvenienceMethods(t *testing.T) {
	cfg := &Config{
		configDir: "/test/config",
		Biospec: &BiospecConfig{
			Roots: []string{".", "./scenarios"},
		},
	}

	t.Run("ConfigDir", func(t *testing.T) {
		assert.Equal(t, "/test/config", cfg.ConfigDir())
	})
}

func TestConfigStats(t *testing.T) {
	cfg := &Config{
		Biospec: &BiospecConfig{Roots: []string{".", "./a", "./b"}},
	}

	stats := cfg.Stats()
	assert.Equal(t, 3, stats.Roots)
}
