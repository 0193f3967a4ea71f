package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Start from DefaultConfig()
//  2. Load biospec.yaml from configDir, if present
//  3. Expand environment variables
//  4. Merge the loaded file over the defaults (loaded values win)
//  5. Validate the result
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully", "roots", stats.Roots)
	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	merged := DefaultConfig()

	loaded, err := loadBiospecYAML(configDir)
	if err != nil {
		return nil, err
	}
	if loaded != nil {
		if err := mergo.Merge(merged, loaded, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge biospec.yaml: %w", err)
		}
	}

	return &Config{configDir: configDir, Biospec: merged}, nil
}

// loadBiospecYAML reads configDir/biospec.yaml, if present. A missing file
// is not an error — the CLI runs perfectly well off DefaultConfig() alone.
func loadBiospecYAML(configDir string) (*BiospecConfig, error) {
	path := filepath.Join(configDir, "biospec.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewLoadError(path, err)
	}

	// ExpandEnv lets a committed biospec.yaml reference secrets
	// (e.g. an agent's API key env var name) without inlining them.
	data = ExpandEnv(data)

	var cfg BiospecConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &cfg, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}
