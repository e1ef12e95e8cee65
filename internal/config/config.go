package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/psantana5/logcheck/internal/adb"
	"github.com/psantana5/logcheck/internal/logging"
)

// Config is the file/env/flag shape of the configuration.
// Durations are strings ("10s", "1m") so the file round-trips through YAML.
type Config struct {
	ADBPath string `yaml:"adb_path" mapstructure:"adb_path"`
	Serial  string `yaml:"serial" mapstructure:"serial"`

	// Filter, when set, overrides Tag/Priority, e.g. "A:D,B:I"
	Tag      string `yaml:"tag" mapstructure:"tag"`
	Priority string `yaml:"priority" mapstructure:"priority"`
	Filter   string `yaml:"filter,omitempty" mapstructure:"filter"`

	Clear        bool   `yaml:"clear" mapstructure:"clear"`
	ClearTimeout string `yaml:"clear_timeout" mapstructure:"clear_timeout"`
	GracePeriod  string `yaml:"grace_period" mapstructure:"grace_period"`

	Hints []string `yaml:"hints" mapstructure:"hints"`

	LogLevel    string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat   string `yaml:"log_format" mapstructure:"log_format"`
	MetricsFile string `yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
	Summary     bool   `yaml:"summary" mapstructure:"summary"`
}

// DefaultHints are the watch points printed before the stream starts
var DefaultHints = []string{
	"playAtPosition: playback position and seek arguments",
	"pendingSeekPosition: pending seek state",
	"play(url): playback URL and playWhenReady setting",
	"STATE_READY: player ready",
	"executing pending seek: seek execution",
	"playback state: playing or paused",
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		ADBPath:      adb.DefaultPath,
		Tag:          adb.DefaultTag,
		Priority:     string(adb.PriorityDebug),
		Clear:        true,
		ClearTimeout: "10s",
		GracePeriod:  "5s",
		Hints:        append([]string(nil), DefaultHints...),
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// SetDefaults registers Defaults with v
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("adb_path", d.ADBPath)
	v.SetDefault("serial", d.Serial)
	v.SetDefault("tag", d.Tag)
	v.SetDefault("priority", d.Priority)
	v.SetDefault("filter", d.Filter)
	v.SetDefault("clear", d.Clear)
	v.SetDefault("clear_timeout", d.ClearTimeout)
	v.SetDefault("grace_period", d.GracePeriod)
	v.SetDefault("hints", d.Hints)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("metrics_file", d.MetricsFile)
	v.SetDefault("summary", d.Summary)
}

// BindEnv binds LOGCHECK_* variables plus the conventional ADB ones
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("LOGCHECK")
	v.AutomaticEnv()
	v.BindEnv("adb_path", "LOGCHECK_ADB_PATH", "ADB_PATH")
	v.BindEnv("serial", "LOGCHECK_SERIAL", "ANDROID_SERIAL")
}

// Load decodes v into a Config
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Settings is the validated, typed form of Config
type Settings struct {
	ADBPath      string
	Serial       string
	Filter       adb.Filter
	Clear        bool
	ClearTimeout time.Duration
	GracePeriod  time.Duration
	Hints        []string
	LogLevel     logging.Level
	JSONLogs     bool
	MetricsFile  string
	Summary      bool
}

// Resolve validates c and converts it to Settings
func (c *Config) Resolve() (*Settings, error) {
	var filter adb.Filter
	if c.Filter != "" {
		f, err := adb.ParseFilter(c.Filter)
		if err != nil {
			return nil, err
		}
		filter = f
	} else {
		filter = adb.SingleTag(c.Tag, adb.Priority(c.Priority))
		if err := filter.Validate(); err != nil {
			return nil, err
		}
	}

	clearTimeout, err := parseDuration("clear_timeout", c.ClearTimeout)
	if err != nil {
		return nil, err
	}
	grace, err := parseDuration("grace_period", c.GracePeriod)
	if err != nil {
		return nil, err
	}

	var jsonLogs bool
	switch c.LogFormat {
	case "", "console", "text":
	case "json":
		jsonLogs = true
	default:
		return nil, fmt.Errorf("invalid log_format %q: want console or json", c.LogFormat)
	}

	path := c.ADBPath
	if path == "" {
		path = adb.DefaultPath
	}

	return &Settings{
		ADBPath:      path,
		Serial:       c.Serial,
		Filter:       filter,
		Clear:        c.Clear,
		ClearTimeout: clearTimeout,
		GracePeriod:  grace,
		Hints:        c.Hints,
		LogLevel:     logging.ParseLevel(c.LogLevel),
		JSONLogs:     jsonLogs,
		MetricsFile:  c.MetricsFile,
		Summary:      c.Summary,
	}, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: %s is negative", key, value)
	}
	return d, nil
}
