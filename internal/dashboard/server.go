// Package dashboard serves the web dashboard API: Discord login, module routes,
// live statistics and Prometheus metrics.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router lets modules mount their endpoints on the dashboard.
type Router interface {
	// Handle registers a public handler. Patterns use net/http ServeMux syntax,
	// e.g. "GET /api/things/{id}".
	Handle(pattern string, h http.Handler)

	// HandleAuthenticated registers a handler that requires a logged-in user.
	HandleAuthenticated(pattern string, h http.Handler)

	// AddStats contributes a named section to the statistics endpoints.
	AddStats(name string, fn func() any)
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg      Config
	mux      *http.ServeMux
	sessions *SessionStore
	auth     *Auth
	limiter  *keyedLimiter

	statsMu   sync.RWMutex
	statNames []string
	stats     map[string]func() any
	startedAt time.Time
}

var _ Router = (*Server)(nil)

// NewServer creates a new Server with the built-in routes registered.
func NewServer(cfg Config) *Server {
	sessions := NewSessionStore(cfg.SessionTTL)
	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		sessions:  sessions,
		auth:      NewAuth(cfg, sessions),
		limiter:   newKeyedLimiter(cfg.ControlRate, cfg.ControlBurst),
		stats:     make(map[string]func() any),
		startedAt: time.Now(),
	}

	if !cfg.OAuthConfigured() {
		slog.Warn("dashboard login disabled: DISCORD_CLIENT_ID or DISCORD_CLIENT_SECRET not set")
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Handle("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	s.Handle("GET /metrics", promhttp.Handler())

	s.Handle("GET /auth/login", http.HandlerFunc(s.auth.Login))
	s.Handle("GET /auth/callback", http.HandlerFunc(s.auth.Callback))
	s.Handle("POST /auth/logout", http.HandlerFunc(s.auth.Logout))

	s.HandleAuthenticated("GET /api/me", http.HandlerFunc(s.auth.Me))
	s.HandleAuthenticated("GET /api/stats", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, s.Stats())
	}))
	s.HandleAuthenticated("GET /api/real-time/stats", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Stream(w, r, s.cfg.StatsInterval, func(context.Context) (any, error) {
			return s.Stats(), nil
		})
	}))
}

// Handle registers a public handler.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// HandleAuthenticated registers a handler behind the session check and the
// per-user mutation rate limit.
func (s *Server) HandleAuthenticated(pattern string, h http.Handler) {
	s.mux.Handle(pattern, s.auth.RequireUser(rateLimitMutations(h, s.limiter)))
}

// AddStats registers a statistics section. Registering a name twice replaces it.
func (s *Server) AddStats(name string, fn func() any) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	if _, ok := s.stats[name]; !ok {
		s.statNames = append(s.statNames, name)
	}
	s.stats[name] = fn
}

// Stats collects every registered statistics section.
func (s *Server) Stats() map[string]any {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()

	out := make(map[string]any, len(s.statNames)+2)
	out["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	out["timestamp"] = time.Now().UTC()
	for _, name := range s.statNames {
		out[name] = s.stats[name]()
	}
	return out
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return instrument(s.mux)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go s.pruneSessions(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown dashboard", "error", err)
		}
	}()

	slog.Info("started dashboard", "addr", s.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Prune(); n > 0 {
				slog.Debug("pruned expired sessions", "count", n)
			}
		}
	}
}
