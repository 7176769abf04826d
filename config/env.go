package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// applyEnvironmentOverrides replaces values from BEAK_* variables.
func applyEnvironmentOverrides(cfg *Config) {
	stringSetting("BEAK_LISTEN", &cfg.Server.Listen)
	intSetting("BEAK_QUEUE_SIZE", &cfg.Server.QueueSize, 1, 65536)

	stringSetting("BEAK_BACKEND", &cfg.Audio.Backend)
	stringSetting("BEAK_DEVICE", &cfg.Audio.Device)
	intSetting("BEAK_SAMPLE_RATE", &cfg.Audio.SampleRate, 0, 384000)
	intSetting("BEAK_BLOCK_SIZE", &cfg.Audio.BlockSize, 0, 16384)
	intSetting("BEAK_INPUTS", &cfg.Audio.Inputs, 0, 64)
	intSetting("BEAK_OUTPUTS", &cfg.Audio.Outputs, 1, 64)
	intSetting("BEAK_VIRTUAL_OUTPUTS", &cfg.Audio.VirtualOutputs, 0, 64)
	boolSetting("BEAK_MONITOR", &cfg.Audio.Monitor)
	durationSetting("BEAK_MAX_NOTE_DURATION", &cfg.Audio.MaxNoteDuration)

	stringSetting("BEAK_CACHE_DIR", &cfg.Cache.Dir)
	stringSetting("BEAK_SAMPLE_ROOT", &cfg.Cache.SampleRoot)
	durationSetting("BEAK_DOWNLOAD_TIMEOUT", &cfg.Cache.DownloadTimeout)
	boolSetting("BEAK_WATCH", &cfg.Cache.Watch)

	stringSetting("BEAK_METRICS_ADDR", &cfg.Metrics.Addr)
	stringSetting("BEAK_LOG_LEVEL", &cfg.Log.Level)
	stringSetting("BEAK_LOG_FORMAT", &cfg.Log.Format)
}

func stringSetting(name string, dst *string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func intSetting(name string, dst *int, min, max int) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "intSetting",
			"env_var":     name,
			"value":       raw,
			"error":       err.Error(),
			"using_value": *dst,
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	if v < min || v > max {
		logrus.WithFields(logrus.Fields{
			"function":    "intSetting",
			"env_var":     name,
			"value":       v,
			"min":         min,
			"max":         max,
			"using_value": *dst,
		}).Warn("Environment variable out of bounds, using default")
		return
	}
	*dst = v
}

func boolSetting(name string, dst *bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "boolSetting",
			"env_var":     name,
			"value":       raw,
			"error":       err.Error(),
			"using_value": *dst,
		}).Warn("Failed to parse environment variable, using default")
		return
	}
	*dst = v
}

func durationSetting(name string, dst *time.Duration) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		fields := logrus.Fields{
			"function":    "durationSetting",
			"env_var":     name,
			"value":       raw,
			"using_value": *dst,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		logrus.WithFields(fields).Warn("Invalid duration in environment variable, using default")
		return
	}
	*dst = v
}
