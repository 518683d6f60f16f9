package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"astrosched/internal/config"
	appLog "astrosched/internal/log"
	"astrosched/internal/model"
	"astrosched/internal/pipeline"
)

// Store is what the HTTP handlers read from and trigger.
type Store interface {
	Latest() *pipeline.Result
	LastError() error
	Refresh(ctx context.Context) error
}

// Server exposes the compiled schedules over HTTP.
type Server struct {
	cfg   *config.Config
	store Store
	mux   *chi.Mux
}

// NewServer constructs a new Server. cfg supplies the listen address and
// basic auth credentials.
func NewServer(cfg *config.Config, store Store) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		mux:   chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="astrosched", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.Recoverer)

	s.mux.Get("/health", s.handleHealth)
	s.mux.Get("/api/schedules", s.handleSchedules)
	s.mux.Post("/api/refresh", s.handleRefresh)
	s.mux.Get("/schedule.xml", s.handleDocument)
	s.mux.Get("/schedule.ics", s.handleCalendar)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// schedulesResponse is the JSON response shape for /api/schedules.
type schedulesResponse struct {
	Version        string        `json:"version"`
	ServerFullPath string        `json:"server_full_path"`
	CompiledAt     time.Time     `json:"compiled_at"`
	EventCount     int           `json:"event_count"`
	Schedules      []scheduleDTO `json:"schedules"`
}

type scheduleDTO struct {
	Name         string   `json:"name"`
	Year         int      `json:"year"`
	DefaultValue *int     `json:"default_value"`
	Location     *latLon  `json:"location,omitempty"`
	EventCount   int      `json:"event_count"`
	Days         []dayDTO `json:"days"`
}

type latLon struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type dayDTO struct {
	Name    string     `json:"name"`
	Entries []entryDTO `json:"entries"`
}

type entryDTO struct {
	Time  string `json:"time"`
	Value *int   `json:"value"`
}

// handleSchedules returns the latest compile.
//
// GET /api/schedules?day=06-21
//   - day: only include the day event with this MM-DD name
func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	res, ok := s.latestOrError(w)
	if !ok {
		return
	}
	day := r.URL.Query().Get("day")

	resp := schedulesResponse{
		Version:        res.Set.Version,
		ServerFullPath: res.Set.ServerFullPath,
		CompiledAt:     res.CompiledAt,
		EventCount:     res.Set.EventCount(),
		Schedules:      make([]scheduleDTO, 0, len(res.Set.Schedules)),
	}
	for i, sc := range res.Set.Schedules {
		dto := scheduleDTO{
			Name:         sc.Name,
			Year:         res.Configs[i].Year,
			DefaultValue: sc.DefaultValue,
			EventCount:   len(sc.Events),
			Days:         make([]dayDTO, 0, len(sc.Events)),
		}
		if c := res.Configs[i]; c.HasLocation() {
			dto.Location = &latLon{Latitude: *c.Latitude, Longitude: *c.Longitude}
		}
		for _, ev := range sc.Events {
			if day != "" && ev.Name != day {
				continue
			}
			dto.Days = append(dto.Days, toDayDTO(ev))
		}
		resp.Schedules = append(resp.Schedules, dto)
	}
	writeJSON(w, http.StatusOK, resp)
}

func toDayDTO(ev model.DayEvent) dayDTO {
	d := dayDTO{Name: ev.Name, Entries: make([]entryDTO, 0, len(ev.Entries))}
	for _, e := range ev.Entries {
		d.Entries = append(d.Entries, entryDTO{
			Time:  model.TimeOfDay{Hour: e.Hour, Minute: e.Minute}.String(),
			Value: e.Value,
		})
	}
	return d
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res := s.store.Latest()
	writeJSON(w, http.StatusOK, map[string]any{
		"compiled_at": res.CompiledAt,
		"event_count": res.Set.EventCount(),
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latestOrError(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.xml"`)
	_, _ = w.Write(res.XML)
}

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.latestOrError(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	_, _ = w.Write(res.ICS)
}

// latestOrError writes 503 when nothing has compiled yet.
func (s *Server) latestOrError(w http.ResponseWriter) (*pipeline.Result, bool) {
	res := s.store.Latest()
	if res != nil {
		return res, true
	}
	msg := "no schedule compiled yet"
	if err := s.store.LastError(); err != nil {
		msg = err.Error()
	}
	writeError(w, http.StatusServiceUnavailable, msg)
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
