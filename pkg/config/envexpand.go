package config

import "os"

// ExpandEnv expands environment variables in a loaded biospec.yaml's raw
// bytes, before YAML parsing. Supports both ${VAR} and $VAR syntax
// (standard shell-style).
//
// Examples:
//   - roots: ["${SCENARIO_ROOT}"] → whatever SCENARIO_ROOT is set to
//   - defaults.agent: $DEFAULT_AGENT
//
// Missing variables expand to empty string; validate() catches the
// resulting empty required fields.
func ExpandEnv(data []byte) []byte {
	expanded := os.ExpandEnv(string(data))
	return []byte(expanded)
}
