package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error messages
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *Validator) ValidateAll() error {
	if err := v.validateRoots(); err != nil {
		return fmt.Errorf("roots validation failed: %w", err)
	}

	if err := v.validateLog(); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}

	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	return nil
}

// validateRoots requires every configured root to exist and be a directory
// (the fetch layer refuses to create them on the caller's behalf).
func (v *Validator) validateRoots() error {
	for _, root := range v.cfg.Biospec.Roots {
		info, err := os.Stat(root)
		if err != nil {
			return NewValidationError("roots", root, "", fmt.Errorf("%w: %v", ErrInvalidValue, err))
		}
		if !info.IsDir() {
			return NewValidationError("roots", root, "", fmt.Errorf("%w: not a directory", ErrInvalidValue))
		}
	}
	return nil
}

func (v *Validator) validateLog() error {
	log := v.cfg.Biospec.Log
	if !log.Level.IsValid() {
		return NewValidationError("log", "level", "level", fmt.Errorf("%w: %q", ErrInvalidValue, log.Level))
	}
	if !log.Format.IsValid() {
		return NewValidationError("log", "format", "format", fmt.Errorf("%w: %q", ErrInvalidValue, log.Format))
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Biospec.Defaults
	if d.Concurrency < 0 {
		return NewValidationError("defaults", "concurrency", "concurrency", fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
	}
	if d.RunsPerSecond < 0 {
		return NewValidationError("defaults", "runs_per_second", "runs_per_second", fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
	}
	return nil
}
