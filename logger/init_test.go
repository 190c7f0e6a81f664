package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected LogLevel
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"off", LevelNone},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.in), tt.in)
	}
}

func TestGetLevelFromEnv(t *testing.T) {
	t.Setenv(LevelEnv, "error")
	assert.Equal(t, LevelError, GetLevelFromEnv())
}

func TestNewSelectsFormat(t *testing.T) {
	_, ok := New("json", LevelInfo).(*jsonLogger)
	assert.True(t, ok)
	_, ok = New("console", LevelInfo).(*consoleLogger)
	assert.True(t, ok)
}
