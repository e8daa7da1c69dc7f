// Package server exposes the lens over HTTP, with scan state streamed over a
// WebSocket.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/highlight"
	"github.com/raysh454/a11ylens/internal/history"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/model"
	"github.com/raysh454/a11ylens/internal/render"
	"github.com/raysh454/a11ylens/internal/scan"
	_ "github.com/raysh454/a11ylens/internal/server/docs"
)

// Lens is what the API drives. app.Lens implements it.
type Lens interface {
	State() scan.State
	Start()
	Clear()
	Subscribe(buffer int) (<-chan scan.State, func())

	Navigate(ctx context.Context, url string) error
	Highlight(ctx context.Context, path []string, d time.Duration) error

	Environment(override string) env.Decision
	Enabled() bool

	ListScans(ctx context.Context, url string, limit int) ([]history.Record, error)
	CompareLatest(ctx context.Context, url string) (*history.Comparison, error)
	GetScan(ctx context.Context, id string) (*model.ScanResult, error)
}

// Server is the HTTP + WebSocket API surface.
type Server struct {
	cfg      Config
	lens     Lens
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

func NewServer(cfg Config, lens Lens) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	s := &Server{
		cfg:    cfg,
		lens:   lens,
		router: chi.NewRouter(),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict to the configured dev origins once the API is reachable off loopback
				return true
			},
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/state", s.optionsHandler("GET"))
	r.Options("/scan", s.optionsHandler("POST, DELETE"))
	r.Options("/navigate", s.optionsHandler("POST"))
	r.Options("/highlight", s.optionsHandler("POST"))
	r.Options("/environment", s.optionsHandler("GET"))
	r.Options("/history", s.optionsHandler("GET"))
	r.Options("/history/*", s.optionsHandler("GET"))

	// Scan
	r.Get("/state", s.handleState)
	r.Post("/scan", s.handleStartScan)
	r.Delete("/scan", s.handleClearScan)

	// Page
	r.Post("/navigate", s.handleNavigate)
	r.Post("/highlight", s.handleHighlight)

	r.Get("/environment", s.handleEnvironment)

	// History
	r.Get("/history", s.handleListHistory)
	r.Get("/history/compare", s.handleCompareHistory)
	r.Get("/history/{id}", s.handleGetHistory)

	// WebSocket for state changes
	r.Get("/ws/state", s.handleStateWS)

	r.Get("/swagger/*", httpSwagger.WrapHandler)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// visibility resolves the environment from the override and force query
// parameters.
func (s *Server) visibility(r *http.Request) (env.Decision, bool) {
	q := r.URL.Query()
	d := s.lens.Environment(q.Get("override"))
	force, _ := strconv.ParseBool(q.Get("force"))
	return d, env.ShouldShow(s.lens.Enabled(), d.Name, force)
}

// --- HTTP handlers ---

// @Summary Current scan state
// @Tags scan
// @Produce json
// @Success 200 {object} scan.State
// @Router /state [get]
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lens.State())
}

// @Summary Start a scan of the current page
// @Tags scan
// @Produce json
// @Success 202 {object} scan.State
// @Failure 403 {object} ErrorResponse
// @Router /scan [post]
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	d, show := s.visibility(r)
	if !show {
		s.logger.Info("scan refused: hidden", logging.Field{Key: "env", Value: d.Name})
		writeError(w, http.StatusForbidden, render.DisabledMessage(d))
		return
	}
	s.lens.Start()
	s.logger.Info("started scan")
	writeJSON(w, http.StatusAccepted, s.lens.State())
}

// @Summary Clear the scan state
// @Tags scan
// @Success 204
// @Router /scan [delete]
func (s *Server) handleClearScan(w http.ResponseWriter, r *http.Request) {
	s.lens.Clear()
	s.logger.Info("cleared scan")
	writeJSON(w, http.StatusNoContent, nil)
}

// @Summary Load a URL in the browser
// @Tags page
// @Accept json
// @Produce json
// @Param body body NavigateRequest true "target"
// @Success 200 {object} NavigateRequest
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /navigate [post]
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("navigating: invalid JSON", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err := s.lens.Navigate(r.Context(), req.URL); err != nil {
		s.logger.Warn("navigating", logging.Field{Key: "url", Value: req.URL}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.logger.Info("navigated", logging.Field{Key: "url", Value: req.URL})
	writeJSON(w, http.StatusOK, req)
}

// @Summary Highlight an element from a scan result
// @Tags page
// @Accept json
// @Param body body HighlightRequest true "element"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /highlight [post]
func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req HighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("highlighting: invalid JSON", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	d := time.Duration(req.DurationMS) * time.Millisecond
	err := s.lens.Highlight(r.Context(), req.SelectorPath, d)
	switch {
	case err == nil:
		writeJSON(w, http.StatusNoContent, nil)
	case errors.Is(err, highlight.ErrNotEligible):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, highlight.ErrElementNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Warn("highlighting", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// @Summary Resolve the environment and visibility
// @Tags environment
// @Produce json
// @Param override query string false "explicit environment"
// @Param force query bool false "force the overlay visible"
// @Success 200 {object} EnvironmentResponse
// @Router /environment [get]
func (s *Server) handleEnvironment(w http.ResponseWriter, r *http.Request) {
	d, show := s.visibility(r)
	resp := EnvironmentResponse{Decision: d, ShouldShow: show}
	if !show {
		resp.Message = render.DisabledMessage(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// @Summary List stored scans
// @Tags history
// @Produce json
// @Param url query string false "page URL"
// @Param limit query int false "maximum records"
// @Success 200 {array} history.Record
// @Router /history [get]
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}
	recs, err := s.lens.ListScans(r.Context(), r.URL.Query().Get("url"), limit)
	if err != nil {
		s.logger.Warn("listing history", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("listed history", logging.Field{Key: "count", Value: len(recs)})
	writeJSON(w, http.StatusOK, recs)
}

// @Summary Compare the two newest scans of a page
// @Tags history
// @Produce json
// @Param url query string true "page URL"
// @Success 200 {object} history.Comparison
// @Failure 404 {object} ErrorResponse
// @Router /history/compare [get]
func (s *Server) handleCompareHistory(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	c, err := s.lens.CompareLatest(r.Context(), url)
	if err != nil {
		s.historyError(w, "comparing history", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// @Summary Get one stored scan
// @Tags history
// @Produce json
// @Param id path string true "scan id"
// @Success 200 {object} model.ScanResult
// @Failure 404 {object} ErrorResponse
// @Router /history/{id} [get]
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.lens.GetScan(r.Context(), id)
	if err != nil {
		s.historyError(w, "getting scan", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) historyError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, history.ErrScanNotFound) {
		s.logger.Warn(msg+": not found")
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Warn(msg, logging.Field{Key: "error", Value: err.Error()})
	writeError(w, http.StatusInternalServerError, err.Error())
}

// WebSockets

func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	states, unsubscribe := s.lens.Subscribe(16)
	defer unsubscribe()

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("state stream opened")
	for {
		select {
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				return
			}
		case <-gone:
			s.logger.Info("state stream closed")
			return
		case <-r.Context().Done():
			return
		}
	}
}
