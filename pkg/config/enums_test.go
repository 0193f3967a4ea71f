package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevelIsValid(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		valid bool
	}{
		{"default", LogLevelDefault, true},
		{"debug", LogLevelDebug, true},
		{"info", LogLevelInfo, true},
		{"warn", LogLevelWarn, true},
		{"error", LogLevelError, true},
		{"invalid", LogLevel("trace"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.level.IsValid())
		})
	}
}

func TestLogFormatIsValid(t *testing.T) {
	tests := []struct {
		name   string
		format LogFormat
		valid  bool
	}{
		{"default", LogFormatDefault, true},
		{"text", LogFormatText, true},
		{"json", LogFormatJSON, true},
		{"invalid", LogFormat("xml"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.format.IsValid())
		})
	}
}
