package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/highlight"
	"github.com/raysh454/a11ylens/internal/history"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/scan"
	"github.com/raysh454/a11ylens/internal/testutil"
)

// testConfig isolates environment resolution from the process environment.
func testConfig(envName string) *Config {
	cfg := DefaultConfig()
	cfg.Env = env.Config{
		ComponentKey: "A11YLENS_TEST_COMPONENT_ENV",
		AppEnvKeys:   []string{},
		ModeKey:      "A11YLENS_TEST_MODE",
		DevFlagKey:   "A11YLENS_TEST_DEV",
		Default:      envName,
	}
	cfg.History.Enabled = false
	return cfg
}

type fixture struct {
	lens   *Lens
	page   *testutil.FakePage
	doc    *testutil.FakeDocument
	engine *testutil.ScriptedEngine
	store  *history.Store
}

func newFixture(t *testing.T, cfg *Config, withStore bool, steps ...testutil.Step) *fixture {
	t.Helper()
	f := &fixture{
		page:   &testutil.FakePage{},
		doc:    testutil.NewFakeDocument(),
		engine: testutil.NewScriptedEngine(steps...),
	}
	c := Components{Page: f.page, Document: f.doc, Engine: f.engine, Window: f.page.WindowVars()}
	if withStore {
		store, err := history.Open(filepath.Join(t.TempDir(), "history.db"), logging.Nop())
		if err != nil {
			t.Fatalf("history.Open: %v", err)
		}
		f.store, c.Store = store, store
	}
	f.lens = NewLens(cfg, c, logging.Nop())
	t.Cleanup(func() { _ = f.lens.Close(context.Background()) })
	return f
}

func waitStatus(t *testing.T, l *Lens, want scan.Status) scan.State {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		st := l.State()
		if st.Status == want {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last state %+v", want, st)
		}
		time.Sleep(time.Millisecond)
	}
}

// ─── Navigation ────────────────────────────────────────────────────────

func TestLens_NavigateMountsAndAutoStarts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig("development"), false,
		testutil.Step{Result: testutil.ScanResult("http://localhost:9999/broken", 2, 10)})

	if err := f.lens.Navigate(context.Background(), "localhost:9999/broken"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if urls := f.page.URLs(); len(urls) != 1 || urls[0] != "http://localhost:9999/broken" {
		t.Errorf("page navigated to %v", urls)
	}
	if f.page.StyleCalls() != 1 {
		t.Errorf("style sheets should be ensured after navigation")
	}

	st := waitStatus(t, f.lens, scan.StatusSucceeded)
	if len(st.Result.Violations) != 2 || len(st.Result.Passes) != 10 {
		t.Errorf("unexpected result %+v", st.Result)
	}
}

func TestLens_NavigateHiddenDoesNotScan(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig("production"), false,
		testutil.Step{Result: testutil.ScanResult("http://x", 0, 0)})

	if err := f.lens.Navigate(context.Background(), "http://x"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if f.engine.Calls() != 0 || f.lens.State().Status != scan.StatusIdle {
		t.Errorf("no scan expected in production, calls=%d", f.engine.Calls())
	}

	d, show := f.lens.Visible(true)
	if d.Name != "production" || !show {
		t.Errorf("force should show: %+v %v", d, show)
	}
}

func TestLens_NavigateResolvesAgainstTheNewPage(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig("development"), false,
		testutil.Step{Result: testutil.ScanResult("http://localhost:9999/broken", 1, 0)},
		testutil.Step{Result: testutil.ScanResult("http://localhost:9999/env/production", 1, 0)})
	f.page.Globals = map[string]map[string]string{
		"http://localhost:9999/env/production": {"A11YLENS_TEST_COMPONENT_ENV": "production"},
	}

	if err := f.lens.Navigate(context.Background(), "http://localhost:9999/broken"); err != nil {
		t.Fatal(err)
	}
	waitStatus(t, f.lens, scan.StatusSucceeded)

	if err := f.lens.Navigate(context.Background(), "http://localhost:9999/env/production"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if f.engine.Calls() != 1 {
		t.Errorf("a production page must not auto-start, calls=%d", f.engine.Calls())
	}
	d, show := f.lens.Visible(false)
	if show || d.Name != "production" || d.Key != "A11YLENS_TEST_COMPONENT_ENV" {
		t.Errorf("expected hidden production from the page, got %+v show=%v", d, show)
	}
}

func TestLens_NavigateClearsPreviousResult(t *testing.T) {
	t.Parallel()
	cfg := testConfig("development")
	cfg.Scan.AutoStart = false
	f := newFixture(t, cfg, false, testutil.Step{Result: testutil.ScanResult("http://a", 1, 0)})

	_ = f.lens.Navigate(context.Background(), "http://a")
	f.lens.Start()
	waitStatus(t, f.lens, scan.StatusSucceeded)

	if err := f.lens.Navigate(context.Background(), "http://b"); err != nil {
		t.Fatal(err)
	}
	if st := f.lens.State(); st.Status != scan.StatusIdle || st.Result != nil {
		t.Errorf("stale result kept across navigation: %+v", st)
	}
}

func TestLens_NavigateErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig("development"), false)
	if err := f.lens.Navigate(context.Background(), ""); err == nil {
		t.Error("empty url should fail")
	}
	f.page.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	if err := f.lens.Navigate(context.Background(), "http://nowhere.invalid"); err == nil {
		t.Error("page failure should surface")
	}
}

// ─── Environment ───────────────────────────────────────────────────────

func TestLens_EnvironmentOverride(t *testing.T) {
	t.Parallel()
	cfg := testConfig("production")
	cfg.Env.Vars = map[string]string{"A11YLENS_TEST_COMPONENT_ENV": "staging"}
	f := newFixture(t, cfg, false)

	if d := f.lens.Environment(""); d.Name != "staging" || d.Source != env.SourceVariable {
		t.Errorf("config vars: %+v", d)
	}
	f.lens.SetOverride("local")
	if d := f.lens.Environment(""); d.Name != "local" || d.Source != env.SourceExplicit {
		t.Errorf("SetOverride: %+v", d)
	}
	if d := f.lens.Environment("qa"); d.Name != "qa" {
		t.Errorf("explicit argument wins: %+v", d)
	}
}

func TestLens_DisabledHidesEverywhere(t *testing.T) {
	t.Parallel()
	cfg := testConfig("development")
	cfg.Enabled = false
	f := newFixture(t, cfg, false)
	if _, show := f.lens.Visible(true); show {
		t.Error("disabled lens must stay hidden even when forced")
	}
}

// ─── Highlight ─────────────────────────────────────────────────────────

func TestLens_Highlight(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig("development"), false)
	el := f.doc.Add([]string{"#el-0"}, testutil.NewFakeElement("k0", map[string]string{"outline": "none"}))

	if err := f.lens.Highlight(context.Background(), []string{"#el-0"}, time.Hour); err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	if el.Inline()["outline"] == "none" {
		t.Error("emphasis not applied")
	}
	if err := f.lens.Highlight(context.Background(), []string{"head"}, 0); !errors.Is(err, highlight.ErrNotEligible) {
		t.Errorf("expected ErrNotEligible, got %v", err)
	}

	if err := f.lens.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if el.Inline()["outline"] != "none" {
		t.Errorf("Close should restore, got %v", el.Inline())
	}
	if f.page.Closed() != 1 {
		t.Error("page not closed")
	}
}

// ─── History ───────────────────────────────────────────────────────────

func TestLens_RecordsSuccessfulScans(t *testing.T) {
	t.Parallel()
	cfg := testConfig("development")
	cfg.Scan.AutoStart = false
	res := testutil.ScanResult("http://localhost:9999/broken", 3, 1)
	f := newFixture(t, cfg, true, testutil.Step{Result: res})

	ctx := context.Background()
	_ = f.lens.Navigate(ctx, "http://localhost:9999/broken")
	f.lens.Start()
	waitStatus(t, f.lens, scan.StatusSucceeded)

	// The recorder saves asynchronously.
	deadline := time.Now().Add(3 * time.Second)
	for {
		recs, err := f.lens.ListScans(ctx, "http://localhost:9999/broken", 10)
		if err != nil {
			t.Fatalf("ListScans: %v", err)
		}
		if len(recs) == 1 {
			if recs[0].ID != res.ID || recs[0].Violations != 3 || recs[0].Environment != "development" {
				t.Errorf("unexpected record %+v", recs[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scan was never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, err := f.lens.GetScan(ctx, res.ID)
	if err != nil || len(got.Violations) != 3 {
		t.Errorf("GetScan: %v %+v", err, got)
	}
	c, err := f.lens.CompareLatest(ctx, "http://localhost:9999/broken")
	if err != nil || len(c.New) != 3 {
		t.Errorf("CompareLatest: %v %+v", err, c)
	}
}

func TestLens_HistoryDisabled(t *testing.T) {
	t.Parallel()
	f := newFixture(t, testConfig("development"), false)
	ctx := context.Background()
	if _, err := f.lens.ListScans(ctx, "", 1); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("ListScans: %v", err)
	}
	if _, err := f.lens.CompareLatest(ctx, "x"); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("CompareLatest: %v", err)
	}
	if _, err := f.lens.GetScan(ctx, "x"); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("GetScan: %v", err)
	}
}

// ─── Application ───────────────────────────────────────────────────────

func TestApplication_OpensLensOnce(t *testing.T) {
	t.Parallel()
	cfg := testConfig("development")
	opens := 0
	page := &testutil.FakePage{}
	a := NewApplication(cfg, logging.Nop())
	a.open = func(ctx context.Context, cfg *Config, logger logging.Logger) (*Lens, error) {
		opens++
		return NewLens(cfg, Components{Page: page, Document: testutil.NewFakeDocument(), Engine: testutil.NewScriptedEngine()}, logger), nil
	}

	l1, err := a.Lens(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	l2, _ := a.Lens(context.Background())
	if l1 != l2 || opens != 1 {
		t.Errorf("expected one lens, opens=%d", opens)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if page.Closed() != 1 {
		t.Error("Shutdown should close the lens")
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}
