package env

import (
	"os"
	"strings"
)

// Lookup is one variable source. An error means the source could not be read
// and is treated like an absent value.
type Lookup interface {
	Lookup(key string) (string, bool, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(key string) (string, bool, error)

func (f LookupFunc) Lookup(key string) (string, bool, error) { return f(key) }

// ProcessEnv reads the process environment.
func ProcessEnv() Lookup {
	return LookupFunc(func(key string) (string, bool, error) {
		v, ok := os.LookupEnv(key)
		return v, ok, nil
	})
}

// Vars serves a fixed map, as loaded from the config file.
func Vars(m map[string]string) Lookup {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return LookupFunc(func(key string) (string, bool, error) {
		v, ok := cp[key]
		return v, ok, nil
	})
}

// InjectedVars is set at build time, e.g.
//
//	go build -ldflags "-X github.com/raysh454/a11ylens/internal/env.InjectedVars=A11Y_LENS_ENV=production;DEV=false"
var InjectedVars string

// BuildVars serves the pairs in InjectedVars, separated by ';'.
func BuildVars() Lookup {
	return Vars(parsePairs(InjectedVars))
}

func parsePairs(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}
