package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/beak/cache"
	"github.com/opd-ai/beak/engine"
	"github.com/opd-ai/beak/limits"
	"github.com/opd-ai/beak/transport"
)

// DefaultPort is the UDP control port.
const DefaultPort = 60000

// Config is the complete daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	Cache   CacheConfig   `yaml:"cache"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the UDP control plane.
type ServerConfig struct {
	Listen    string `yaml:"listen" validate:"required,hostname_port"`
	QueueSize int    `yaml:"queue_size" validate:"gte=1,lte=65536"`
}

// AudioConfig configures the audio device and engine topology.
type AudioConfig struct {
	Backend         string        `yaml:"backend" validate:"oneof=oto default null none manual"`
	Device          string        `yaml:"device"`
	SampleRate      int           `yaml:"sample_rate" validate:"gte=0,lte=384000"`
	BlockSize       int           `yaml:"block_size" validate:"gte=0,lte=16384"`
	Inputs          int           `yaml:"inputs" validate:"gte=0,lte=64"`
	Outputs         int           `yaml:"outputs" validate:"gte=1,lte=64"`
	VirtualOutputs  int           `yaml:"virtual_outputs" validate:"gte=0,lte=64"`
	Monitor         bool          `yaml:"monitor"`
	MaxNoteDuration time.Duration `yaml:"max_note_duration" validate:"gt=0"`
}

// CacheConfig configures the asset cache.
type CacheConfig struct {
	Dir             string        `yaml:"dir" validate:"required"`
	SampleRoot      string        `yaml:"sample_root"`
	DownloadTimeout time.Duration `yaml:"download_timeout" validate:"gt=0"`
	Watch           bool          `yaml:"watch"`
}

// MetricsConfig configures the HTTP metrics endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the stock configuration: stereo output through the
// default device, control on UDP 60000, metrics disabled.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:    fmt.Sprintf("0.0.0.0:%d", DefaultPort),
			QueueSize: transport.DefaultQueueSize,
		},
		Audio: AudioConfig{
			Backend:         "oto",
			SampleRate:      48000,
			BlockSize:       512,
			Outputs:         2,
			MaxNoteDuration: limits.MaxNoteDuration,
		},
		Cache: CacheConfig{
			Dir:             cache.DefaultDir,
			SampleRoot:      ".",
			DownloadTimeout: cache.DefaultDownloadTimeout,
			Watch:           true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":        "Load",
		"path":            path,
		"listen":          cfg.Server.Listen,
		"backend":         cfg.Audio.Backend,
		"outputs":         cfg.Audio.Outputs,
		"virtual_outputs": cfg.Audio.VirtualOutputs,
		"cache_dir":       cfg.Cache.Dir,
		"sample_root":     cfg.Cache.SampleRoot,
		"metrics_addr":    cfg.Metrics.Addr,
	}).Debug("Configuration loaded")

	return cfg, nil
}

var validate = validator.New()

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, verrs[0].Namespace())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// EngineConfig returns the engine section.
func (c *Config) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.DeviceName = c.Audio.Device
	cfg.SampleRate = c.Audio.SampleRate
	cfg.BlockSize = c.Audio.BlockSize
	cfg.Inputs = c.Audio.Inputs
	cfg.Outputs = c.Audio.Outputs
	cfg.VirtualOutputs = c.Audio.VirtualOutputs
	cfg.MonitorInputs = c.Audio.Monitor
	cfg.MaxNoteDuration = c.Audio.MaxNoteDuration
	return cfg
}

// CacheConfig returns the cache section.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Dir:             c.Cache.Dir,
		SampleRoot:      c.Cache.SampleRoot,
		DownloadTimeout: c.Cache.DownloadTimeout,
	}
}
