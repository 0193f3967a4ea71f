package config

// BiospecConfig is biospec.yaml's top-level shape: the filesystem roots
// searched for DATs, the process-wide log configuration, and the CLI
// flag defaults a project can pin once instead of repeating per
// invocation.
type BiospecConfig struct {
	Roots    []string    `yaml:"roots,omitempty"`
	Log      LogConfig   `yaml:"log,omitempty"`
	Defaults RunDefaults `yaml:"defaults,omitempty"`
}

// Config is the umbrella object Initialize() returns: the resolved
// BiospecConfig plus the directory it was loaded from, for diagnostics.
type Config struct {
	configDir string
	Biospec   *BiospecConfig
}

// Initialize is defined in loader.go.

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// ConfigStats summarizes loaded configuration for startup logging.
type ConfigStats struct {
	Roots int
}

// Stats returns configuration statistics for logging.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{Roots: len(c.Biospec.Roots)}
}
