package cache

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults for Config.
const (
	DefaultDir             = "cache"
	DefaultDownloadTimeout = 30 * time.Second
	// MaxDownloadSize bounds a single remote asset.
	MaxDownloadSize = 256 << 20
)

// Config locates the cache on disk.
type Config struct {
	// Dir holds staging files for remote assets.
	Dir string `validate:"required"`
	// SampleRoot is the only tree local assets may be read from. Empty
	// means the working directory.
	SampleRoot      string
	DownloadTimeout time.Duration `validate:"gt=0"`
}

// DefaultConfig returns a cache in ./cache serving samples from the
// working directory.
func DefaultConfig() Config {
	return Config{
		Dir:             DefaultDir,
		SampleRoot:      ".",
		DownloadTimeout: DefaultDownloadTimeout,
	}
}

var validate = validator.New()

// Validate checks required fields.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	return nil
}
