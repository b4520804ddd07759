package ops

import (
	"bytes"
	"strings"
	"testing"

	"github.com/campuso/crossfeed/internal/config"
)

func TestNewLoggerWithWriter(t *testing.T) {
	tests := []struct {
		name   string
		config *config.Logging
	}{
		{
			name: "text format",
			config: &config.Logging{
				Level:  "info",
				Format: "text",
			},
		},
		{
			name: "json format",
			config: &config.Logging{
				Level:  "debug",
				Format: "json",
			},
		},
		{
			name: "warn level",
			config: &config.Logging{
				Level:  "warn",
				Format: "text",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.config, &buf)
			if logger == nil {
				t.Fatal("expected logger to be created")
			}

			if logger.format != tt.config.Format {
				t.Errorf("expected format %s, got %s", tt.config.Format, logger.format)
			}
		})
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Logging{
		Level:  "info",
		Format: "text",
	}

	logger := NewLoggerWithWriter(cfg, &buf)
	componentLogger := logger.WithComponent("paginator")

	componentLogger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected log output to contain 'test message', got: %s", output)
	}

	if !strings.Contains(output, "component") {
		t.Errorf("expected log output to contain 'component', got: %s", output)
	}
}

func TestIsDebugEnabled(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected bool
	}{
		{"debug level", "debug", true},
		{"info level", "info", false},
		{"error level", "error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&config.Logging{
				Level:  tt.level,
				Format: "text",
			}, &buf)

			if logger.IsDebugEnabled() != tt.expected {
				t.Errorf("IsDebugEnabled() = %v, expected %v", logger.IsDebugEnabled(), tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&config.Logging{
		Level:  "warn",
		Format: "text",
	}, &buf)

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	logger.Warn("warning message")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Errorf("expected sub-warn messages to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warning message") {
		t.Errorf("expected warn message in output, got: %s", output)
	}
}
