package env_test

import (
	"errors"
	"testing"

	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/testutil"
)

func resolver(lookups ...env.Lookup) *env.Resolver {
	return env.NewResolver(env.DefaultConfig(), nil, lookups...)
}

// ─── IsDevelopmentLike / ShouldShow ────────────────────────────────────

func TestIsDevelopmentLike(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"development": true,
		"DEVELOPMENT": true,
		"Dev":         true,
		"dev":         true,
		"LOCAL":       true,
		" local ":     true,
		"production":  false,
		"staging":     false,
		"":            false,
		"develop":     false,
		"devx":        false,
		"test":        false,
	}
	for name, want := range cases {
		if got := env.IsDevelopmentLike(name); got != want {
			t.Errorf("IsDevelopmentLike(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestShouldShow_TruthTable(t *testing.T) {
	t.Parallel()
	for _, enabled := range []bool{false, true} {
		for _, name := range []string{"development", "production"} {
			for _, force := range []bool{false, true} {
				want := enabled && (name == "development" || force)
				if got := env.ShouldShow(enabled, name, force); got != want {
					t.Errorf("ShouldShow(%v, %q, %v) = %v, want %v", enabled, name, force, got, want)
				}
			}
		}
	}
}

// ─── Resolve precedence ────────────────────────────────────────────────

func TestResolve_ExplicitOverrideWins(t *testing.T) {
	t.Parallel()
	r := resolver(env.Vars(map[string]string{"A11Y_LENS_ENV": "production", "DEV": "true"}))

	d := r.Resolve("local")
	if d.Name != "local" || d.Source != env.SourceExplicit || !d.IsDevelopmentLike {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestResolve_OverrideReturnedVerbatim(t *testing.T) {
	t.Parallel()
	r := resolver(env.Vars(map[string]string{"APP_ENV": "production"}))

	d := r.Resolve(" Staging ")
	if d.Name != " Staging " || d.Source != env.SourceExplicit || d.IsDevelopmentLike {
		t.Errorf("unexpected decision %+v", d)
	}
	if d := r.Resolve(" Local "); d.Name != " Local " || !d.IsDevelopmentLike {
		t.Errorf("classification should still trim: %+v", d)
	}
	if d := r.Resolve("   "); d.Source != env.SourceVariable || d.Name != "production" {
		t.Errorf("blank override is absent: %+v", d)
	}
}

func TestResolve_Precedence(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		vars    map[string]string
		want    string
		source  env.Source
		key     string
		devLike bool
	}{
		{"component key first", map[string]string{"A11Y_LENS_ENV": "staging", "APP_ENV": "dev", "MODE": "dev"}, "staging", env.SourceVariable, "A11Y_LENS_ENV", false},
		{"app env before environment", map[string]string{"APP_ENV": "production", "ENVIRONMENT": "dev"}, "production", env.SourceVariable, "APP_ENV", false},
		{"environment", map[string]string{"ENVIRONMENT": "local", "MODE": "production"}, "local", env.SourceVariable, "ENVIRONMENT", true},
		{"mode", map[string]string{"MODE": "production", "DEV": "true"}, "production", env.SourceVariable, "MODE", false},
		{"dev flag true", map[string]string{"DEV": "true"}, "development", env.SourceInferredFlag, "DEV", true},
		{"dev flag false", map[string]string{"DEV": "false"}, "production", env.SourceInferredFlag, "DEV", false},
		{"dev flag numeric", map[string]string{"DEV": "0"}, "production", env.SourceInferredFlag, "DEV", false},
		{"unparseable dev flag ignored", map[string]string{"DEV": "banana"}, "development", env.SourceDefault, "", true},
		{"empty values are absent", map[string]string{"A11Y_LENS_ENV": "  ", "APP_ENV": ""}, "development", env.SourceDefault, "", true},
		{"default", nil, "development", env.SourceDefault, "", true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := resolver(env.Vars(tc.vars)).Resolve("")
			if d.Name != tc.want || d.Source != tc.source || d.Key != tc.key || d.IsDevelopmentLike != tc.devLike {
				t.Errorf("got %+v, want name=%q source=%q key=%q dev=%v", d, tc.want, tc.source, tc.key, tc.devLike)
			}
		})
	}
}

func TestResolve_SourceOrderPerKey(t *testing.T) {
	t.Parallel()
	build := env.Vars(map[string]string{})
	process := env.Vars(map[string]string{"APP_ENV": "from-process"})
	config := env.Vars(map[string]string{"A11Y_LENS_ENV": "from-config", "APP_ENV": "from-config"})

	// Keys are walked in precedence order; inside a key sources are in order.
	d := resolver(build, process, config).Resolve("")
	if d.Name != "from-config" || d.Key != "A11Y_LENS_ENV" {
		t.Errorf("component key in a later source must beat app env: %+v", d)
	}

	d = resolver(build, process, env.Vars(map[string]string{"APP_ENV": "from-config"})).Resolve("")
	if d.Name != "from-process" {
		t.Errorf("earlier source must win for the same key: %+v", d)
	}
}

func TestResolve_IsFresh(t *testing.T) {
	t.Parallel()
	vals := map[string]string{"MODE": "production"}
	r := resolver(env.LookupFunc(func(key string) (string, bool, error) {
		v, ok := vals[key]
		return v, ok, nil
	}))

	if d := r.Resolve(""); d.Name != "production" {
		t.Fatalf("first resolve %+v", d)
	}
	vals["MODE"] = "dev"
	if d := r.Resolve(""); d.Name != "dev" {
		t.Errorf("expected fresh read, got %+v", d)
	}
}

// ─── Fault tolerance ───────────────────────────────────────────────────

func TestResolve_ErroringAndPanickingSourcesAreAbsent(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	failing := env.LookupFunc(func(string) (string, bool, error) {
		return "", false, errors.New("window unavailable")
	})
	panicking := env.LookupFunc(func(string) (string, bool, error) {
		panic("boom")
	})
	r := env.NewResolver(env.DefaultConfig(), logger, failing, panicking, nil, env.Vars(map[string]string{"MODE": "staging"}))

	d := r.Resolve("")
	if d.Name != "staging" || d.Source != env.SourceVariable {
		t.Errorf("unexpected decision %+v", d)
	}
	if logger.DebugCount() == 0 {
		t.Error("expected source failures logged at debug")
	}
}

func TestResolve_CustomKeys(t *testing.T) {
	t.Parallel()
	cfg := env.DefaultConfig()
	cfg.ComponentKey = "LENS"
	cfg.Default = "production"
	r := env.NewResolver(cfg, nil, env.Vars(map[string]string{"A11Y_LENS_ENV": "dev"}))

	if d := r.Resolve(""); d.Name != "production" || d.Source != env.SourceDefault {
		t.Errorf("expected configured default, got %+v", d)
	}
}

// ─── Build vars ────────────────────────────────────────────────────────

func TestBuildVars_ParsesInjectedPairs(t *testing.T) {
	prev := env.InjectedVars
	t.Cleanup(func() { env.InjectedVars = prev })
	env.InjectedVars = "A11Y_LENS_ENV = production; broken ;DEV=true;=x"

	v, ok, err := env.BuildVars().Lookup("A11Y_LENS_ENV")
	if err != nil || !ok || v != "production" {
		t.Errorf("Lookup = %q, %v, %v", v, ok, err)
	}
	if _, ok, _ := env.BuildVars().Lookup("broken"); ok {
		t.Error("pair without '=' must be skipped")
	}
}
