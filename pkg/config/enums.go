package config

// LogLevel is the slog level a biospec.yaml's log.level resolves to.
type LogLevel string

const (
	LogLevelDefault LogLevel = ""      // falls back to LogLevelInfo
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarn    LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// IsValid checks if the log level is valid (empty string is valid — means default).
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDefault, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// LogFormat selects the slog handler the CLI installs.
type LogFormat string

const (
	LogFormatDefault LogFormat = "" // falls back to LogFormatText
	LogFormatText    LogFormat = "text"
	LogFormatJSON    LogFormat = "json"
)

// IsValid checks if the log format is valid (empty string is valid — means default).
func (f LogFormat) IsValid() bool {
	switch f {
	case LogFormatDefault, LogFormatText, LogFormatJSON:
		return true
	default:
		return false
	}
}
