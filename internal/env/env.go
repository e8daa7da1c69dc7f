// Package env decides which runtime environment the overlay is in and
// whether it should be shown there.
package env

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/raysh454/a11ylens/internal/logging"
)

// Source says where a Decision's name came from.
type Source string

const (
	SourceExplicit     Source = "explicit"
	SourceVariable     Source = "variable"
	SourceInferredFlag Source = "inferred-flag"
	SourceDefault      Source = "default"
)

// Decision is the outcome of one resolution.
type Decision struct {
	Name              string `json:"name"`
	IsDevelopmentLike bool   `json:"is_development_like"`
	Source            Source `json:"source"`
	// Key is the variable that supplied Name; empty for explicit and default.
	Key string `json:"key,omitempty"`
}

type Config struct {
	ComponentKey string   `mapstructure:"component_key" yaml:"component_key"`
	AppEnvKeys   []string `mapstructure:"app_env_keys" yaml:"app_env_keys"`
	ModeKey      string   `mapstructure:"mode_key" yaml:"mode_key"`
	DevFlagKey   string   `mapstructure:"dev_flag_key" yaml:"dev_flag_key"`
	Default      string   `mapstructure:"default" yaml:"default"`

	// Vars are config-file values consulted after the process environment.
	Vars map[string]string `mapstructure:"vars" yaml:"vars"`
}

func DefaultConfig() Config {
	return Config{
		ComponentKey: "A11Y_LENS_ENV",
		AppEnvKeys:   []string{"APP_ENV", "ENVIRONMENT"},
		ModeKey:      "MODE",
		DevFlagKey:   "DEV",
		Default:      "development",
	}
}

var developmentNames = []string{"development", "dev", "local"}

// IsDevelopmentLike reports whether name is development, dev or local,
// ignoring case and surrounding whitespace.
func IsDevelopmentLike(name string) bool {
	name = strings.TrimSpace(name)
	for _, d := range developmentNames {
		if strings.EqualFold(name, d) {
			return true
		}
	}
	return false
}

// ShouldShow gates the overlay: it must be enabled, and either the environment
// is development-like or the caller forces it.
func ShouldShow(enabled bool, envName string, forceShow bool) bool {
	return enabled && (IsDevelopmentLike(envName) || forceShow)
}

type Resolver struct {
	cfg     Config
	lookups []Lookup
	logger  logging.Logger
}

// NewResolver consults lookups in order for every key.
func NewResolver(cfg Config, logger logging.Logger, lookups ...Lookup) *Resolver {
	if logger == nil {
		logger = logging.Nop()
	}
	def := DefaultConfig()
	if cfg.ComponentKey == "" {
		cfg.ComponentKey = def.ComponentKey
	}
	if cfg.AppEnvKeys == nil {
		cfg.AppEnvKeys = def.AppEnvKeys
	}
	if cfg.ModeKey == "" {
		cfg.ModeKey = def.ModeKey
	}
	if cfg.DevFlagKey == "" {
		cfg.DevFlagKey = def.DevFlagKey
	}
	if cfg.Default == "" {
		cfg.Default = def.Default
	}
	return &Resolver{
		cfg:     cfg,
		lookups: lookups,
		logger:  logger.With(logging.Field{Key: "component", Value: "env"}),
	}
}

// Resolve returns the first non-empty of: override, the component key, the
// app env keys, the mode key, the dev flag, the default. It reads every
// source fresh and never fails.
func (r *Resolver) Resolve(override string) Decision {
	if strings.TrimSpace(override) != "" {
		return decide(override, SourceExplicit, "")
	}

	keys := make([]string, 0, 2+len(r.cfg.AppEnvKeys))
	keys = append(keys, r.cfg.ComponentKey)
	keys = append(keys, r.cfg.AppEnvKeys...)
	keys = append(keys, r.cfg.ModeKey)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if v, ok := r.lookup(key); ok {
			return decide(v, SourceVariable, key)
		}
	}

	if key := r.cfg.DevFlagKey; key != "" {
		if raw, ok := r.lookup(key); ok {
			dev, err := cast.ToBoolE(raw)
			if err == nil {
				name := "production"
				if dev {
					name = "development"
				}
				return decide(name, SourceInferredFlag, key)
			}
			r.logger.Debug("ignoring unparseable dev flag",
				logging.Field{Key: "key", Value: key},
				logging.Field{Key: "value", Value: raw})
		}
	}

	return decide(r.cfg.Default, SourceDefault, "")
}

func decide(name string, src Source, key string) Decision {
	return Decision{Name: name, IsDevelopmentLike: IsDevelopmentLike(name), Source: src, Key: key}
}

// lookup returns the first non-empty value for key across all sources.
func (r *Resolver) lookup(key string) (string, bool) {
	for i, l := range r.lookups {
		v, ok, err := safeLookup(l, key)
		if err != nil {
			r.logger.Debug("variable source unavailable",
				logging.Field{Key: "source", Value: i},
				logging.Field{Key: "key", Value: key},
				logging.Field{Key: "error", Value: err})
			continue
		}
		if v = strings.TrimSpace(v); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func safeLookup(l Lookup, key string) (v string, ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, ok, err = "", false, fmt.Errorf("lookup panicked: %v", p)
		}
	}()
	if l == nil {
		return "", false, nil
	}
	return l.Lookup(key)
}
