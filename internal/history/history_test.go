package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/raysh454/a11ylens/internal/history"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/model"
	"github.com/raysh454/a11ylens/internal/testutil"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "data", "history.db"), logging.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func result(id, url string, at time.Time, rules map[string]model.Impact) *model.ScanResult {
	res := &model.ScanResult{ID: id, URL: url, Timestamp: at, EngineVersion: "4.10.2"}
	for rule, impact := range rules {
		res.Violations = append(res.Violations, model.Violation{CheckResult: model.CheckResult{
			ID:     rule,
			Impact: impact,
			Nodes:  []model.ElementRef{{SelectorPath: []string{"#" + rule}}},
		}})
	}
	return res
}

// ─── Save / List / Get ─────────────────────────────────────────────────

func TestStore_SaveListGet(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := testutil.ScanResult("http://a", 2, 3)
	a.ID, a.Timestamp = "scan-a", base
	b := testutil.ScanResult("http://b", 1, 0)
	b.ID, b.Timestamp = "scan-b", base.Add(time.Minute)

	rec, err := s.Save(ctx, a, "development")
	if err != nil {
		t.Fatalf("Save a: %v", err)
	}
	if rec.Violations != 2 || rec.Passes != 3 || !rec.CreatedAt.Equal(base) {
		t.Errorf("unexpected record %+v", rec)
	}
	if _, err := s.Save(ctx, b, "staging"); err != nil {
		t.Fatalf("Save b: %v", err)
	}
	if _, err := s.Save(ctx, a, "development"); err != nil {
		t.Fatalf("re-saving the same scan must be a no-op: %v", err)
	}

	all, err := s.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != "scan-b" || all[1].ID != "scan-a" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	onlyA, _ := s.List(ctx, "http://a", 10)
	if len(onlyA) != 1 || onlyA[0].Environment != "development" {
		t.Errorf("url filter: %+v", onlyA)
	}
	sameA, _ := s.List(ctx, "HTTP://A/#main", 10)
	if len(sameA) != 1 || sameA[0].ID != "scan-a" {
		t.Errorf("url filter should match by page key: %+v", sameA)
	}

	got, err := s.Get(ctx, "scan-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Violations) != 2 || got.Violations[0].Nodes[0].SelectorPath[0] != "#el-0" {
		t.Errorf("round trip lost data: %+v", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, history.ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}
}

func TestStore_SaveRejectsMissingID(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	if _, err := s.Save(context.Background(), &model.ScanResult{}, ""); err == nil {
		t.Fatal("expected error")
	}
}

// ─── Compare ───────────────────────────────────────────────────────────

func TestCompare_NewResolvedPersisting(t *testing.T) {
	t.Parallel()
	now := time.Now()
	prev := result("p", "http://x", now, map[string]model.Impact{
		"image-alt": model.ImpactCritical,
		"region":    model.ImpactModerate,
	})
	latest := result("l", "http://x", now, map[string]model.Impact{
		"region":         model.ImpactModerate,
		"color-contrast": model.ImpactSerious,
		"label":          model.ImpactCritical,
	})

	c := history.Compare(prev, latest)
	if c.PreviousID != "p" || c.LatestID != "l" {
		t.Errorf("ids: %+v", c)
	}
	if len(c.New) != 2 || c.New[0].ID != "label" || c.New[1].ID != "color-contrast" {
		t.Errorf("new ordered by priority: %+v", c.New)
	}
	if len(c.Resolved) != 1 || c.Resolved[0].ID != "image-alt" {
		t.Errorf("resolved: %+v", c.Resolved)
	}
	if len(c.Persisting) != 1 || c.Persisting[0].ID != "region" {
		t.Errorf("persisting: %+v", c.Persisting)
	}
}

func TestStore_CompareLatest(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.CompareLatest(ctx, "http://x"); !errors.Is(err, history.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound on empty store, got %v", err)
	}

	first := result("1", "http://x", base, map[string]model.Impact{"a": model.ImpactMinor})
	if _, err := s.Save(ctx, first, ""); err != nil {
		t.Fatal(err)
	}
	c, err := s.CompareLatest(ctx, "http://x")
	if err != nil {
		t.Fatal(err)
	}
	if c.PreviousID != "" || len(c.New) != 1 {
		t.Errorf("single scan: %+v", c)
	}

	second := result("2", "http://x", base.Add(time.Hour), map[string]model.Impact{"b": model.ImpactSerious})
	if _, err := s.Save(ctx, second, ""); err != nil {
		t.Fatal(err)
	}
	c, err = s.CompareLatest(ctx, "http://x")
	if err != nil {
		t.Fatal(err)
	}
	if c.PreviousID != "1" || c.LatestID != "2" || len(c.New) != 1 || len(c.Resolved) != 1 {
		t.Errorf("two scans: %+v", c)
	}
}
