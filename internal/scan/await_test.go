package scan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raysh454/a11ylens/internal/scan"
	"github.com/raysh454/a11ylens/internal/testutil"
)

// ─── Await ─────────────────────────────────────────────────────────────

func TestAwait_SkipsPreviousResult(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(
		testutil.Step{Result: testutil.ScanResult("http://x", 1, 0)},
		testutil.Step{Result: testutil.ScanResult("http://x", 3, 0)},
	)
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)
	ctl.Start()
	waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))

	states, unsubscribe := ctl.Subscribe(16)
	defer unsubscribe()
	run := ctl.State().Run
	ctl.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	st, err := scan.Await(ctx, states, run)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if len(st.Result.Violations) != 3 {
		t.Errorf("expected the new result, got %d violations", len(st.Result.Violations))
	}
}

func TestAwait_ClearAbandons(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	defer close(gate)
	engine := testutil.NewScriptedEngine(testutil.Step{Gate: gate, Result: testutil.ScanResult("http://x", 0, 0)})
	ctl := newController(engine, scan.DefaultConfig(), testutil.NewFakeClock())

	states, unsubscribe := ctl.Subscribe(16)
	defer unsubscribe()
	ctl.Start()
	waitStarted(t, engine)
	ctl.Clear()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := scan.Await(ctx, states, 0); !errors.Is(err, scan.ErrScanAbandoned) {
		t.Errorf("expected ErrScanAbandoned, got %v", err)
	}
}

func TestAwait_ContextDone(t *testing.T) {
	t.Parallel()
	states := make(chan scan.State, 1)
	states <- scan.State{Status: scan.StatusScanning, Run: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := scan.Await(ctx, states, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAwait_SlowReaderStillSeesResult(t *testing.T) {
	t.Parallel()
	engine := testutil.NewScriptedEngine(testutil.Step{Result: testutil.ScanResult("http://x", 2, 0)})
	clk := testutil.NewFakeClock()
	ctl := newController(engine, scan.DefaultConfig(), clk)

	states, unsubscribe := ctl.Subscribe(1)
	defer unsubscribe()
	ctl.Start()
	waitFor(t, ctl, clk, 0, status(scan.StatusSucceeded))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	st, err := scan.Await(ctx, states, 0)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if st.Status != scan.StatusSucceeded || len(st.Result.Violations) != 2 {
		t.Errorf("unexpected state %+v", st)
	}
}
