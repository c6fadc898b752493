package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DATA_DIR", "MONITOR_INTERVAL", "OTEL_ENABLED", "JWT_SECRET"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/var/lib/hypedesk", cfg.DataDir)
	assert.Equal(t, 10*time.Second, cfg.MonitorInterval)
	assert.False(t, cfg.OtelEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MONITOR_INTERVAL", "30s")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("TEMPLATES_FILE", "/etc/hypedesk/templates.yaml")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.MonitorInterval)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "/etc/hypedesk/templates.yaml", cfg.TemplatesFile)
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 10 * time.Second},
		{"5s", 5 * time.Second},
		{"15", 15 * time.Second},
		{"-3s", 10 * time.Second},
		{"soon", 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("HYPEDESK_TEST_INTERVAL", tt.value)
			assert.Equal(t, tt.want, getDuration("HYPEDESK_TEST_INTERVAL", 10*time.Second))
		})
	}
}
