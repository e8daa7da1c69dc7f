package highlight

import "time"

// DefaultDuration is how long an element stays emphasized.
const DefaultDuration = 4 * time.Second

type Config struct {
	Duration time.Duration `mapstructure:"duration" yaml:"duration"`

	// Emphasis maps CSS property names to the values applied while highlighted.
	Emphasis map[string]string `mapstructure:"emphasis" yaml:"emphasis"`
}

func DefaultConfig() Config {
	return Config{
		Duration: DefaultDuration,
		Emphasis: DefaultEmphasis(),
	}
}

// DefaultEmphasis is a cyan outline with a soft glow.
func DefaultEmphasis() map[string]string {
	return map[string]string{
		"outline":        "3px solid var(--a11y-accent, #00c7e6)",
		"outline-offset": "4px",
		"box-shadow":     "0 0 20px rgba(0, 199, 230, 0.4)",
	}
}

// StyleSheetID and StyleSheet define the accent variable the emphasis uses.
const StyleSheetID = "a11y-lens-highlight-styles"

const StyleSheet = `:root { --a11y-accent: #00c7e6; }
@media (prefers-reduced-motion: no-preference) {
  html { scroll-behavior: smooth; }
}
`
