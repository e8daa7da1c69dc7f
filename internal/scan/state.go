package scan

import (
	"time"

	"github.com/raysh454/a11ylens/internal/model"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusScanning  Status = "scanning"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// State is a consistent snapshot of a Controller. Result is the latest
// successful scan; it stays set while a rescan runs and after a failed one,
// until Clear.
type State struct {
	Status Status            `json:"status"`
	Result *model.ScanResult `json:"result,omitempty"`
	Err    *model.ErrorInfo  `json:"error,omitempty"`

	// Run counts the scans started so far. A snapshot with a higher Run
	// belongs to a later Start.
	Run uint64 `json:"run"`

	// Attempt is the zero-based engine attempt within the current scan.
	Attempt   int       `json:"attempt"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnlimitedRetries makes busy retries unbounded.
const UnlimitedRetries = -1

type Config struct {
	AutoStart    bool          `mapstructure:"auto_start" yaml:"auto_start"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`

	// MaxRetries bounds busy retries after the first attempt; negative means
	// unbounded.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

func DefaultConfig() Config {
	return Config{
		AutoStart:    true,
		InitialDelay: 0,
		RetryDelay:   100 * time.Millisecond,
		MaxRetries:   UnlimitedRetries,
	}
}
