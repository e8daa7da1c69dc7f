package browser

import "time"

type Config struct {
	// Headless runs Chrome without a window.
	Headless bool `mapstructure:"headless" yaml:"headless"`

	// IdleAfter is how long the network must stay quiet before a navigation
	// counts as settled.
	IdleAfter time.Duration `mapstructure:"idle_after" yaml:"idle_after"`

	// NavigateTimeout caps the wait for network idle after a navigation.
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout" yaml:"navigate_timeout"`

	UserAgent    string `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth  int    `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int    `mapstructure:"window_height" yaml:"window_height"`

	// ExecPath overrides the Chrome binary lookup.
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
}

func DefaultConfig() Config {
	return Config{
		Headless:        true,
		IdleAfter:       500 * time.Millisecond,
		NavigateTimeout: 15 * time.Second,
		WindowWidth:     1280,
		WindowHeight:    800,
	}
}
