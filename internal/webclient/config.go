package webclient

import "time"

// Config controls script downloads.
type Config struct {
	// Timeout bounds a whole request including the body read.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// UserAgent is sent on every request when non-empty.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`

	// MaxBytes caps the script size. axe-core is well under 1 MiB.
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`

	MaxRedirects int `mapstructure:"max_redirects" yaml:"max_redirects"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		UserAgent:    "a11ylens/0.1",
		MaxBytes:     8 << 20,
		MaxRedirects: 5,
	}
}
