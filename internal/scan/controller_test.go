package scan_test

import (
	"errors"
	"testing"
	"time"

	"github.com/raysh454/a11ylens/internal/audit"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/model"
	"github.com/raysh454/a11ylens/internal/scan"
	"github.com/raysh454/a11ylens/internal/testutil"
)

func newController(engine *testutil.ScriptedEngine, cfg scan.Config, clk *testutil.FakeClock) *scan.Controller {
	return scan.NewController(engine, cfg, logging.Nop(), scan.WithClock(clk))
}

// waitFor polls until pred holds, advancing the fake clock so pending retries
// fire.
func waitFor(t *testing.T, ctl *scan.Controller, clk *testutil.FakeClock, step time.Duration, pred func(scan.State) bool) scan.State {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		st := ctl.State()
		if pred(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting; last state %+v", st)
		}
		if step > 0 && clk.Pending() > 0 {
			clk.Advance(step)
		}
		time.Sleep(time.Millisecond)
	}
}

func status(s scan.Status) func(scan.State) bool {
	return func(st scan.State) bool { return st.Status == s }
}

func waitStarted(t *testing.T, engine *testutil.ScriptedEngine) {
	t.Helper()
	select {
	case <-engine.Started():
	case <-time.After(3 * time.Second):
		t.Fatal("engine never started")
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────────

func TestController_InitialStateIdle(t *testing.T) {
	t.Parallel()
	ctl := newController(testutil.NewScriptedEngine(), scan.DefaultConfig(), testutil.NewFakeClock())
	if st := ctl.State(); st.Status != scan.StatusIdle || st.Result != nil || st.Err != nil {
		t.Errorf("unexpected initial state %+v", st)
	}
}

func TestController_SucceedsWithCounts(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(testutil.Step{Result: testutil.ScanResult("http://x", 2, 10)})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	ctl.Start()
	st := waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))

	if len(st.Result.Violations) != 2 || len(st.Result.Passes) != 10 {
		t.Errorf("got %d violations and %d passes", len(st.Result.Violations), len(st.Result.Passes))
	}
	if st.Err != nil {
		t.Errorf("unexpected error %v", st.Err)
	}
}

func TestController_NoOverlappingRuns(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	engine := testutil.NewScriptedEngine(testutil.Step{Result: testutil.ScanResult("http://x", 1, 1), Gate: gate})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	ctl.Start()
	waitStarted(t, engine)
	for i := 0; i < 10; i++ {
		ctl.Start()
	}
	if st := ctl.State(); st.Status != scan.StatusScanning {
		t.Fatalf("expected scanning, got %s", st.Status)
	}
	close(gate)
	waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))

	if engine.Calls() != 1 {
		t.Errorf("expected 1 engine call, got %d", engine.Calls())
	}
	if engine.MaxInFlight() != 1 {
		t.Errorf("expected at most one run in flight, got %d", engine.MaxInFlight())
	}
}

func TestController_RestartAfterSuccess(t *testing.T) {
	t.Parallel()
	first := testutil.ScanResult("http://x", 1, 0)
	second := testutil.ScanResult("http://x", 0, 3)
	engine := testutil.NewScriptedEngine(testutil.Step{Result: first}, testutil.Step{Result: second})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	ctl.Start()
	waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))
	ctl.Start()
	st := waitFor(t, ctl, clk, 0, func(st scan.State) bool {
		return st.Status == scan.StatusSucceeded && st.Result == second
	})
	if len(st.Result.Passes) != 3 {
		t.Errorf("new result must replace the old one")
	}
}

// ─── Busy retries ──────────────────────────────────────────────────────

func TestController_BusyRetriesExhausted(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(testutil.Step{Err: audit.ErrEngineBusy})
	clk := testutil.NewFakeClock()
	cfg := scan.DefaultConfig()
	cfg.MaxRetries = 2
	ctl := newController(engine, cfg, clk)

	ctl.Start()
	st := waitFor(t, ctl, clk, cfg.RetryDelay, status(scan.StatusFailed))

	if engine.Calls() != 3 {
		t.Errorf("expected 3 attempts, got %d", engine.Calls())
	}
	if st.Err == nil || st.Err.Kind != model.ErrorKindEngineBusy {
		t.Errorf("expected engine_busy, got %+v", st.Err)
	}
	if st.Attempt != 2 {
		t.Errorf("attempt = %d", st.Attempt)
	}
}

func TestController_BusyStaysScanningThenSucceeds(t *testing.T) {
	t.Parallel()
	busy := &audit.EngineError{Message: "Axe is already running", Busy: true}
	engine := testutil.NewScriptedEngine(
		testutil.Step{Err: busy},
		testutil.Step{Err: errors.New("axe is already running")},
		testutil.Step{Result: testutil.ScanResult("http://x", 0, 1)},
	)
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)
	updates, unsubscribe := ctl.Subscribe(32)
	defer unsubscribe()

	ctl.Start()
	st := waitFor(t, ctl, clk, 100*time.Millisecond, status(scan.StatusSucceeded))
	if st.Attempt != 2 || engine.Calls() != 3 {
		t.Errorf("attempt=%d calls=%d", st.Attempt, engine.Calls())
	}

	// No Failed snapshot may be published while retrying.
	for {
		select {
		case s := <-updates:
			if s.Status == scan.StatusFailed {
				t.Fatalf("busy must not surface as failed: %+v", s)
			}
			if s.Status == scan.StatusSucceeded {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("never saw succeeded snapshot")
		}
	}
}

func TestController_UsesRetryDelay(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(testutil.Step{Err: audit.ErrEngineBusy}, testutil.Step{Result: testutil.ScanResult("u", 0, 0)})
	clk := testutil.NewFakeClock()
	cfg := scan.DefaultConfig()
	cfg.RetryDelay = time.Second
	ctl := newController(engine, cfg, clk)

	ctl.Start()
	waitStarted(t, engine)
	waitUntil(t, func() bool { return clk.Pending() == 1 })

	clk.Advance(999 * time.Millisecond)
	if engine.Calls() != 1 {
		t.Fatalf("retried before the delay elapsed")
	}
	clk.Advance(time.Millisecond)
	waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))
}

// ─── Failures ──────────────────────────────────────────────────────────

func TestController_FailureKeepsPreviousResult(t *testing.T) {
	t.Parallel()
	first := testutil.ScanResult("http://x", 2, 2)
	engine := testutil.NewScriptedEngine(testutil.Step{Result: first}, testutil.Step{Err: errors.New("page crashed")})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	ctl.Start()
	waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))
	ctl.Start()
	st := waitFor(t, ctl, clk, 0, status(scan.StatusFailed))

	if st.Err.Kind != model.ErrorKindEngineFailure || st.Err.Message != "page crashed" {
		t.Errorf("unexpected error %+v", st.Err)
	}
	if st.Result != first {
		t.Error("previous result must stay visible after a failure")
	}

	ctl.Start()
	if st := ctl.State(); st.Status != scan.StatusScanning || st.Err != nil {
		t.Errorf("restart must clear the error, got %+v", st)
	}
}

func TestController_EnginePanicIsFailure(t *testing.T) {
	t.Parallel()
	clk := testutil.NewFakeClock()
	ctl := scan.NewController(nil, scan.DefaultConfig(), logging.Nop(), scan.WithClock(clk))

	ctl.Start()
	st := waitFor(t, ctl, clk, 0, status(scan.StatusFailed))
	if st.Err.Kind != model.ErrorKindEngineFailure {
		t.Errorf("kind = %s", st.Err.Kind)
	}
}

// ─── Clear / Dispose ───────────────────────────────────────────────────

func TestController_ClearDiscardsResult(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(testutil.Step{Result: testutil.ScanResult("u", 1, 1)})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	ctl.Start()
	waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))
	ctl.Clear()
	if st := ctl.State(); st.Status != scan.StatusIdle || st.Result != nil {
		t.Errorf("unexpected state after clear %+v", st)
	}
}

func TestController_ClearAbandonsInFlightAndRetry(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	engine := testutil.NewScriptedEngine(testutil.Step{Result: testutil.ScanResult("u", 1, 1), Gate: gate})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	ctl.Start()
	waitStarted(t, engine)
	ctl.Clear()
	close(gate)
	time.Sleep(20 * time.Millisecond)
	if st := ctl.State(); st.Status != scan.StatusIdle {
		t.Errorf("abandoned run wrote state: %+v", st)
	}

	busyEngine := testutil.NewScriptedEngine(testutil.Step{Err: audit.ErrEngineBusy})
	ctl = newController(busyEngine, scan.DefaultConfig(), clk)
	ctl.Start()
	waitStarted(t, busyEngine)
	waitUntil(t, func() bool { return clk.Pending() == 1 })
	ctl.Clear()
	if clk.Pending() != 0 {
		t.Error("pending retry must be stopped by Clear")
	}
}

func TestController_DisposeDiscardsInFlight(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	engine := testutil.NewScriptedEngine(testutil.Step{Result: testutil.ScanResult("u", 1, 1), Gate: gate})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)
	updates, _ := ctl.Subscribe(8)

	ctl.Start()
	waitStarted(t, engine)
	ctl.Dispose()
	close(gate)
	time.Sleep(20 * time.Millisecond)

	if st := ctl.State(); st.Status != scan.StatusScanning {
		t.Errorf("disposed controller changed state: %+v", st)
	}
	ctl.Start()
	if engine.Calls() != 1 {
		t.Error("Start after Dispose must be a no-op")
	}

	// Drain; the channel must be closed.
	for range updates {
	}
}

// ─── Mount ─────────────────────────────────────────────────────────────

func TestController_MountAutoStart(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(testutil.Step{Result: testutil.ScanResult("u", 0, 0)})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	ctl.Mount()
	ctl.Mount()
	waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))
	if engine.Calls() != 1 {
		t.Errorf("expected one auto-start, got %d", engine.Calls())
	}
}

func TestController_MountHonorsAutoStartAndDelay(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(testutil.Step{Result: testutil.ScanResult("u", 0, 0)})
	clk := testutil.NewFakeClock()

	cfg := scan.DefaultConfig()
	cfg.AutoStart = false
	off := newController(engine, cfg, clk)
	off.Mount()
	if off.State().Status != scan.StatusIdle || engine.Calls() != 0 {
		t.Fatal("AutoStart=false must not scan")
	}

	cfg = scan.DefaultConfig()
	cfg.InitialDelay = 500 * time.Millisecond
	delayed := newController(engine, cfg, clk)
	delayed.Mount()
	if delayed.State().Status != scan.StatusIdle {
		t.Fatal("scan started before the initial delay")
	}
	clk.Advance(500 * time.Millisecond)
	waitFor(t, delayed, clk, 0, status(scan.StatusSucceeded))
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never held")
		}
		time.Sleep(time.Millisecond)
	}
}

// ─── Subscribe ─────────────────────────────────────────────────────────

func TestController_SubscribeKeepsLatestWhenFull(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(testutil.Step{Result: testutil.ScanResult("http://x", 1, 1)})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	states, unsubscribe := ctl.Subscribe(1)
	defer unsubscribe()
	ctl.Start()
	want := waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))

	var last scan.State
	for drained := false; !drained; {
		select {
		case st := <-states:
			last = st
		default:
			drained = true
		}
	}
	if last.Status != scan.StatusSucceeded || last.Run != want.Run || last.Run != 1 {
		t.Errorf("slow subscriber should hold the latest state, got %+v", last)
	}
}

func TestController_RunCountsStarts(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(
		testutil.Step{Result: testutil.ScanResult("http://x", 0, 0)},
		testutil.Step{Result: testutil.ScanResult("http://x", 0, 0)},
	)
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	ctl.Start()
	waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))
	ctl.Clear()
	if st := ctl.State(); st.Run != 1 {
		t.Errorf("Clear keeps the run count, got %d", st.Run)
	}
	ctl.Start()
	if st := waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded)); st.Run != 2 {
		t.Errorf("second scan should be run 2, got %d", st.Run)
	}
}
