package audit

import "time"

// DefaultScriptURL is the axe-core build fetched when no local copy is configured.
const DefaultScriptURL = "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js"

type Config struct {
	// ScriptPath is a local axe-core build. It takes precedence over ScriptURL.
	ScriptPath string `mapstructure:"script_path" yaml:"script_path"`

	// ScriptURL is fetched once when ScriptPath is empty.
	ScriptURL string `mapstructure:"script_url" yaml:"script_url"`

	// RunTimeout bounds one axe run. Zero means no bound.
	RunTimeout time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`

	Options RunOptions `mapstructure:"options" yaml:"options"`
}

// DefaultConfig returns the audit defaults.
func DefaultConfig() Config {
	return Config{
		ScriptURL: DefaultScriptURL,
	}
}
