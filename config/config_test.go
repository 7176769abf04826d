package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/beak/limits"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beak.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:60000", cfg.Server.Listen)
	assert.Equal(t, 2, cfg.Audio.Outputs)
	assert.Equal(t, limits.MaxNoteDuration, cfg.Audio.MaxNoteDuration)
	assert.Empty(t, cfg.Metrics.Addr)

	ec := cfg.EngineConfig()
	require.NoError(t, ec.Validate())
	assert.Equal(t, 48000, ec.SampleRate)

	cc := cfg.CacheConfig()
	require.NoError(t, cc.Validate())
	assert.Equal(t, ".", cc.SampleRoot)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: 127.0.0.1:7000
audio:
  backend: "null"
  outputs: 8
  virtual_outputs: 4
  monitor: true
cache:
  dir: /tmp/beak-cache
  download_timeout: 5s
metrics:
  addr: 127.0.0.1:9100
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Listen)
	assert.Equal(t, "null", cfg.Audio.Backend)
	assert.Equal(t, 8, cfg.Audio.Outputs)
	assert.Equal(t, 4, cfg.Audio.VirtualOutputs)
	assert.True(t, cfg.Audio.Monitor)
	assert.Equal(t, 5*time.Second, cfg.Cache.DownloadTimeout)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, "json", cfg.Log.Format)

	// Unset keys keep their defaults.
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, ".", cfg.Cache.SampleRoot)

	ec := cfg.EngineConfig()
	assert.True(t, ec.MonitorInputs)
	assert.Equal(t, 4, ec.VirtualOutputs)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"bad outputs", "audio:\n  outputs: 0\n", ErrInvalidConfig},
		{"bad backend", "audio:\n  backend: alsa\n", ErrInvalidConfig},
		{"bad listen", "server:\n  listen: nowhere\n", ErrInvalidConfig},
		{"bad level", "log:\n  level: loud\n", ErrInvalidConfig},
		{"empty cache dir", "cache:\n  dir: \"\"\n", ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Load(writeConfig(t, "audio: [1, 2"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BEAK_LISTEN", "127.0.0.1:6000")
	t.Setenv("BEAK_OUTPUTS", "4")
	t.Setenv("BEAK_MONITOR", "true")
	t.Setenv("BEAK_DOWNLOAD_TIMEOUT", "2s")
	t.Setenv("BEAK_SAMPLE_ROOT", "/srv/samples")

	path := writeConfig(t, "audio:\n  outputs: 6\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6000", cfg.Server.Listen)
	assert.Equal(t, 4, cfg.Audio.Outputs, "environment beats the file")
	assert.True(t, cfg.Audio.Monitor)
	assert.Equal(t, 2*time.Second, cfg.Cache.DownloadTimeout)
	assert.Equal(t, "/srv/samples", cfg.Cache.SampleRoot)
}

func TestLoad_InvalidEnvironmentIgnored(t *testing.T) {
	var logs bytes.Buffer
	logrus.SetOutput(&logs)
	defer logrus.SetOutput(os.Stderr)

	tests := []struct {
		env   string
		value string
		check func(*Config) bool
	}{
		{"BEAK_OUTPUTS", "many", func(c *Config) bool { return c.Audio.Outputs == 2 }},
		{"BEAK_OUTPUTS", "0", func(c *Config) bool { return c.Audio.Outputs == 2 }},
		{"BEAK_VIRTUAL_OUTPUTS", "100", func(c *Config) bool { return c.Audio.VirtualOutputs == 0 }},
		{"BEAK_MONITOR", "sometimes", func(c *Config) bool { return !c.Audio.Monitor }},
		{"BEAK_DOWNLOAD_TIMEOUT", "soon", func(c *Config) bool { return c.Cache.DownloadTimeout == 30*time.Second }},
		{"BEAK_MAX_NOTE_DURATION", "-1s", func(c *Config) bool { return c.Audio.MaxNoteDuration == limits.MaxNoteDuration }},
	}
	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			logs.Reset()
			t.Setenv(tt.env, tt.value)
			cfg, err := Load("")
			require.NoError(t, err)
			assert.True(t, tt.check(cfg))
			assert.Contains(t, logs.String(), tt.env)
		})
	}
}

func TestLogConfig_Apply(t *testing.T) {
	defer func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	}()

	var out bytes.Buffer
	require.NoError(t, LogConfig{Level: "debug", Format: "json"}.Apply(&out))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	logrus.WithField("function", "TestLogConfig_Apply").Debug("hello")
	assert.Contains(t, out.String(), `"msg":"hello"`)

	assert.Error(t, LogConfig{Level: "loud", Format: "text"}.Apply(nil))
	err := LogConfig{Level: "info", Format: "xml"}.Apply(nil)
	assert.True(t, errors.Is(err, ErrUnknownLogFormat))
}
