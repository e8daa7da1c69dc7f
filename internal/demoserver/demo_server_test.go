package demoserver_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/raysh454/a11ylens/internal/demoserver"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(demoserver.NewDemoServer(demoserver.DefaultConfig()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, u string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func expected(t *testing.T, base, path string) []string {
	t.Helper()
	_, body := get(t, base+"/demo/expected?path="+url.QueryEscape(path))
	var out struct {
		Expect []string `json:"expect"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return out.Expect
}

// ─── pages ───────────────────────────────────────────────────────────

func TestPages_ServeFixtures(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	resp, body := get(t, srv.URL+"/broken")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Fixture-Version") != "1" {
		t.Fatalf("status %d version %q", resp.StatusCode, resp.Header.Get("X-Fixture-Version"))
	}
	if !strings.Contains(body, `<img id="hero"`) || strings.Contains(body, `alt=`) {
		t.Errorf("v1 should have an image without alt:\n%s", body)
	}

	_, body = get(t, srv.URL+"/env/production")
	if !strings.Contains(body, `window.__A11Y_LENS_ENV__ = "production"`) {
		t.Errorf("env page should declare its environment:\n%s", body)
	}

	if resp, _ := get(t, srv.URL+"/missing"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown page: %d", resp.StatusCode)
	}
}

func TestEveryPageHasAVersion(t *testing.T) {
	t.Parallel()
	for _, p := range demoserver.GetAllPages() {
		if _, ok := p.Version(p.MaxVersion()); !ok {
			t.Errorf("%s has no servable version", p.Path)
		}
		if _, ok := p.Version(1); !ok {
			t.Errorf("%s has no version 1", p.Path)
		}
	}
}

// ─── version control ─────────────────────────────────────────────────

func TestSetVersion(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	if got := expected(t, srv.URL, "/broken"); len(got) != 4 {
		t.Fatalf("v1 expectations: %v", got)
	}

	resp, err := http.PostForm(srv.URL+"/demo/set-version", url.Values{"path": {"/broken"}, "version": {"9"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set-version: %d", resp.StatusCode)
	}
	if got := expected(t, srv.URL, "/broken"); len(got) != 0 {
		t.Errorf("version clamps to the fixed page, got %v", got)
	}

	resp, _ = http.PostForm(srv.URL+"/demo/set-version", url.Values{"path": {"/nope"}, "version": {"1"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown page: %d", resp.StatusCode)
	}
	resp, _ = http.PostForm(srv.URL+"/demo/set-version", url.Values{"path": {"/broken"}, "version": {"x"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad version: %d", resp.StatusCode)
	}
}

func TestBumpAndReset(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	for i := 0; i < 5; i++ {
		resp, err := http.Post(srv.URL+"/demo/bump-all", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}
	_, body := get(t, srv.URL+"/demo/get-versions")
	var infos []demoserver.PageInfo
	if err := json.Unmarshal([]byte(body), &infos); err != nil {
		t.Fatal(err)
	}
	for _, info := range infos {
		if last := info.AvailableVersions[len(info.AvailableVersions)-1]; info.CurrentVersion != last {
			t.Errorf("%s: bump should stop at v%d, got v%d", info.Path, last, info.CurrentVersion)
		}
	}

	resp, err := http.Post(srv.URL+"/demo/reset", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := expected(t, srv.URL, "/form"); len(got) != 2 {
		t.Errorf("reset should restore v1: %v", got)
	}
}

func TestControlPanel(t *testing.T) {
	t.Parallel()
	srv := newServer(t)
	resp, body := get(t, srv.URL+"/demo/control")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Fixture Control Panel") || !strings.Contains(body, "/env/staging") {
		t.Errorf("control panel: %d\n%s", resp.StatusCode, body)
	}
}

func TestConfig_InitialVersion(t *testing.T) {
	t.Parallel()
	cfg := demoserver.DefaultConfig()
	cfg.InitialVersion = 2
	srv := httptest.NewServer(demoserver.NewDemoServer(cfg).Handler())
	defer srv.Close()

	if got := expected(t, srv.URL, "/broken"); len(got) != 2 {
		t.Errorf("v2 of /broken should leave two rules, got %v", got)
	}
	// Pages without a second revision fall back to their last one.
	if got := expected(t, srv.URL, "/env/staging"); len(got) != 1 {
		t.Errorf("env page: %v", got)
	}
}
