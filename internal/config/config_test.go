package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/logcheck/internal/adb"
	"github.com/psantana5/logcheck/internal/logging"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaultsResolve(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	s, err := cfg.Resolve()
	require.NoError(t, err)

	assert.Equal(t, "adb", s.ADBPath)
	assert.Equal(t, []string{"AudioPlayerService:D", "*:S"}, s.Filter.Specs())
	assert.True(t, s.Clear)
	assert.Equal(t, 10*time.Second, s.ClearTimeout)
	assert.Equal(t, 5*time.Second, s.GracePeriod)
	assert.Equal(t, DefaultHints, s.Hints)
	assert.Equal(t, logging.INFO, s.LogLevel)
	assert.False(t, s.JSONLogs)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
adb_path: /opt/android/platform-tools/adb
serial: emulator-5554
filter: "AudioPlayerService:V,ExoPlayerImpl:I"
clear: false
grace_period: 0s
log_format: json
hints:
  - STATE_READY
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	s, err := cfg.Resolve()
	require.NoError(t, err)

	assert.Equal(t, "/opt/android/platform-tools/adb", s.ADBPath)
	assert.Equal(t, "emulator-5554", s.Serial)
	assert.Equal(t, []string{"AudioPlayerService:V", "ExoPlayerImpl:I", "*:S"}, s.Filter.Specs())
	assert.False(t, s.Clear)
	assert.Equal(t, time.Duration(0), s.GracePeriod)
	assert.True(t, s.JSONLogs)
	assert.Equal(t, []string{"STATE_READY"}, s.Hints)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANDROID_SERIAL", "R58M123ABC")
	t.Setenv("LOGCHECK_TAG", "PlaylistManager")

	v := newViper()
	BindEnv(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "R58M123ABC", cfg.Serial)
	assert.Equal(t, "PlaylistManager", cfg.Tag)
}

func TestResolveRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad priority", func(c *Config) { c.Priority = "Z" }},
		{"empty tag", func(c *Config) { c.Tag = "" }},
		{"bad filter", func(c *Config) { c.Filter = "NoPriority" }},
		{"bad clear timeout", func(c *Config) { c.ClearTimeout = "soon" }},
		{"negative grace", func(c *Config) { c.GracePeriod = "-1s" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			_, err := cfg.Resolve()
			assert.Error(t, err)
		})
	}
}

func TestResolveFilterErrorIsTyped(t *testing.T) {
	cfg := Defaults()
	cfg.Filter = "Tag:Q"
	_, err := cfg.Resolve()
	assert.True(t, errors.Is(err, adb.ErrInvalidFilter))
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	d := Defaults()
	data, err := yaml.Marshal(&d)
	require.NoError(t, err)
	assert.Contains(t, string(data), "grace_period: 5s")
	assert.NotContains(t, string(data), "metrics_file")

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}
