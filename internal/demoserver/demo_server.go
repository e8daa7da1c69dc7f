// Package demoserver serves fixture pages with known accessibility defects
// and a control panel that switches each page between broken and fixed
// versions.
package demoserver

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// DemoServer is a simple HTTP server for exercising the overlay.
type DemoServer struct {
	cfg      Config
	pages    map[string]PageDefinition
	versions map[string]int // path -> current version
	mu       sync.RWMutex
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config) *DemoServer {
	if cfg.InitialVersion < 1 {
		cfg.InitialVersion = 1
	}
	pageMap := make(map[string]PageDefinition)
	versions := make(map[string]int)
	for _, p := range GetAllPages() {
		pageMap[p.Path] = p
		versions[p.Path] = cfg.InitialVersion
	}

	return &DemoServer{
		cfg:      cfg,
		pages:    pageMap,
		versions: versions,
	}
}

// Handler returns the routes of the demo server.
func (s *DemoServer) Handler() http.Handler {
	r := chi.NewRouter()
	for path := range s.pages {
		r.Get(path, s.pageHandler(path))
	}

	r.Route("/demo", func(r chi.Router) {
		r.Get("/control", s.controlPanelHandler)
		r.Post("/set-version", s.setVersionHandler)
		r.Get("/get-versions", s.getVersionsHandler)
		r.Get("/expected", s.expectedHandler)
		r.Post("/bump-all", s.bumpAllVersionsHandler)
		r.Post("/reset", s.resetVersionsHandler)
	})
	return r
}

// Start listens on the configured port until the server fails.
func (s *DemoServer) Start() error {
	return http.ListenAndServe(fmt.Sprintf(":%d", s.cfg.Port), s.Handler())
}

func (s *DemoServer) current(path string) (PageVersion, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.pages[path]
	if !ok {
		return PageVersion{}, 0, false
	}
	v := s.versions[path]
	pv, ok := def.Version(v)
	return pv, v, ok
}

// pageHandler returns a handler for a specific page path.
func (s *DemoServer) pageHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pv, v, ok := s.current(path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Fixture-Version", strconv.Itoa(v))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(pv.HTML))
	}
}

var controlPanel = template.Must(template.New("control").Parse(controlPanelHTML))

// controlPanelHandler serves the control panel for version management.
func (s *DemoServer) controlPanelHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := struct {
		Pages    map[string]PageDefinition
		Versions map[string]int
	}{
		Pages:    s.pages,
		Versions: s.versions,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = controlPanel.Execute(w, data)
}

// setVersionHandler sets the version for a specific page.
func (s *DemoServer) setVersionHandler(w http.ResponseWriter, r *http.Request) {
	path := r.FormValue("path")
	version, err := strconv.Atoi(r.FormValue("version"))
	if err != nil || version < 1 {
		http.Error(w, "Invalid version number", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	def, ok := s.pages[path]
	if ok {
		if version > def.MaxVersion() {
			version = def.MaxVersion()
		}
		s.versions[path] = version
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "Unknown page", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"path":    path,
		"version": version,
	})
}

// PageInfo describes a page for the get-versions endpoint.
type PageInfo struct {
	Path              string   `json:"path"`
	Description       string   `json:"description"`
	CurrentVersion    int      `json:"current_version"`
	AvailableVersions []int    `json:"available_versions"`
	Expect            []string `json:"expect"`
}

func (s *DemoServer) pageInfos() []PageInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pages := make([]PageInfo, 0, len(s.pages))
	for path, def := range s.pages {
		var versions []int
		for v := range def.Versions {
			versions = append(versions, v)
		}
		sort.Ints(versions)
		cur, _ := def.Version(s.versions[path])
		expect := cur.Expect
		if expect == nil {
			expect = []string{}
		}
		pages = append(pages, PageInfo{
			Path:              path,
			Description:       def.Description,
			CurrentVersion:    s.versions[path],
			AvailableVersions: versions,
			Expect:            expect,
		})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	return pages
}

// getVersionsHandler returns the current version of every page.
func (s *DemoServer) getVersionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.pageInfos())
}

// expectedHandler returns the rule ids the current version of ?path= violates.
func (s *DemoServer) expectedHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	pv, v, ok := s.current(path)
	if !ok {
		http.Error(w, "Unknown page", http.StatusNotFound)
		return
	}
	expect := pv.Expect
	if expect == nil {
		expect = []string{}
	}
	writeJSON(w, map[string]any{"path": path, "version": v, "expect": expect})
}

// bumpAllVersionsHandler moves every page one version closer to fixed.
func (s *DemoServer) bumpAllVersionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	for path := range s.versions {
		if s.versions[path] < s.pages[path].MaxVersion() {
			s.versions[path]++
		}
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"success": true,
		"message": "All versions bumped",
	})
}

// resetVersionsHandler resets all pages to version 1.
func (s *DemoServer) resetVersionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	for path := range s.versions {
		s.versions[path] = 1
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"success": true,
		"message": "All versions reset to 1",
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

const controlPanelHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>Fixture Control Panel</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; max-width: 1000px; margin: 0 auto; padding: 20px; background: #f5f5f5; color: #222; }
        h1 { border-bottom: 2px solid #00758a; padding-bottom: 10px; }
        .page-card { background: white; border-radius: 8px; padding: 20px; margin: 15px 0; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .page-header { display: flex; justify-content: space-between; align-items: center; }
        .page-path { font-size: 1.2em; font-weight: bold; color: #00758a; }
        .page-desc { color: #444; margin: 5px 0; }
        .version-btn { padding: 8px 16px; border: 1px solid #00758a; border-radius: 4px; cursor: pointer; background: white; color: #00758a; }
        .version-btn[aria-pressed="true"] { background: #00758a; color: white; }
        .global-btn { padding: 10px 20px; margin-right: 10px; border: none; border-radius: 4px; cursor: pointer; background: #1f2937; color: white; }
    </style>
</head>
<body>
<main>
    <h1>Fixture Control Panel</h1>
    <p>Version 1 of each page carries its defects; later versions fix them. Scan, switch, and scan again to compare.</p>

    <section aria-labelledby="global">
        <h2 id="global">Global Controls</h2>
        <button class="global-btn" onclick="post('/demo/bump-all')">Bump All Versions</button>
        <button class="global-btn" onclick="post('/demo/reset')">Reset All to v1</button>
    </section>

    <h2>Pages</h2>
    {{range $path, $page := .Pages}}
    <div class="page-card">
        <div class="page-header">
            <a href="{{$path}}" class="page-path">{{$path}}</a>
            <span>Current: v{{index $.Versions $path}}</span>
        </div>
        <p class="page-desc">{{$page.Description}}</p>
        {{range $v, $_ := $page.Versions}}
        <button class="version-btn" aria-pressed="{{if eq (index $.Versions $path) $v}}true{{else}}false{{end}}"
                onclick="post('/demo/set-version', 'path=' + encodeURIComponent('{{$path}}') + '&version={{$v}}')">v{{$v}}</button>
        {{end}}
    </div>
    {{end}}

    <script>
        function post(url, body) {
            fetch(url, {
                method: 'POST',
                headers: {'Content-Type': 'application/x-www-form-urlencoded'},
                body: body || ''
            }).then(() => location.reload());
        }
    </script>
</main>
</body>
</html>`
