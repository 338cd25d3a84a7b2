package logger

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/scan-io-git/skim/internal/config"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name string
		env  string
		cfg  *config.Config
		want hclog.Level
	}{
		{name: "nil config", cfg: nil, want: hclog.Info},
		{name: "config level", cfg: &config.Config{Logger: config.Logger{Level: "debug"}}, want: hclog.Debug},
		{name: "env wins", env: "error", cfg: &config.Config{Logger: config.Logger{Level: "debug"}}, want: hclog.Error},
		{name: "unknown level", cfg: &config.Config{Logger: config.Logger{Level: "loud"}}, want: hclog.Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(LogLevelEnv, tt.env)
			assert.Equal(t, tt.want, determineLogLevel(tt.cfg))
		})
	}
}

func TestNewLoggerFormat(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	enabled := true
	cfg := &config.Config{Logger: config.Logger{JSONFormat: &enabled}}

	var buf bytes.Buffer
	l := newLogger(cfg, "core-test", &buf)
	l.Info("rules reloaded", "rules", 3)

	assert.Contains(t, buf.String(), `"@message":"rules reloaded"`)
	assert.Contains(t, buf.String(), `"@module":"core-test"`)
	assert.NotContains(t, buf.String(), `"@timestamp"`)
}
