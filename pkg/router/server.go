package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	apperrors "github.com/apigate/apigate/pkg/errors"
	"github.com/apigate/apigate/pkg/logging"
	"github.com/apigate/apigate/pkg/serializer"
)

// Server is the ingress router HTTP server: compiled rules, per-backend
// proxies, and the middleware shell around them.
type Server struct {
	config          *Config
	rules           *RuleSet
	proxies         *proxyPool
	backendOverride string

	httpServer  *http.Server
	rateLimiter *rate.Limiter
	mu          sync.RWMutex
	ready       bool
}

// New creates a router server for the given rule set.
func New(rules *RuleSet, opts ...Option) *Server {
	s := &Server{
		config:  NewConfig(),
		rules:   rules,
		proxies: newProxyPool(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.rateLimiter = rate.NewLimiter(s.config.RateLimit, s.config.RateLimitBurst)

	mux := s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler:           mux,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		ErrorLog:          logging.NewLogLogger(slog.LevelError),
	}

	return s
}

// setupRoutes configures all HTTP routes and middleware.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// System endpoints (no rate limiting)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	// Everything else goes through rule matching
	mux.HandleFunc("/", s.withMiddleware(s.handleRoute))

	return mux
}

// handleRoute matches the request path against the rule set, rewrites it,
// and forwards to the matched backend. No match falls through to the
// default-backend behavior: a structured 404.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	// Rules run against the escaped path so encoded separators (%2F) stay
	// opaque instead of collapsing into segment boundaries.
	path := r.URL.EscapedPath()
	rule, rewritten, ok := s.rules.Match(path)
	if !ok {
		routeMisses.Inc()
		WriteStructuredError(w, r, http.StatusNotFound,
			apperrors.New(apperrors.ErrCodeNotFound, "No route matched"),
			map[string]interface{}{
				"path": path,
			})
		return
	}

	backend := rule.Backend
	if s.backendOverride != "" {
		backend = s.backendOverride
	}

	proxy, err := s.proxies.get(backend)
	if err != nil {
		slog.Error("invalid backend", "backend", backend, "error", err)
		WriteError(w, r, http.StatusInternalServerError, ErrCodeInternalError,
			"Invalid backend", false, nil)
		return
	}

	routeMatches.WithLabelValues(rule.Name).Inc()
	slog.Debug("routing request",
		"rule", rule.Name,
		"path", path,
		"rewritten", rewritten,
		"backend", backend,
	)

	// Only the path changes; method, Host, headers, and body pass through.
	// The rewritten path is in escaped form, so it becomes RawPath and is
	// unescaped for the decoded Path.
	r.URL.RawPath = rewritten
	if unescaped, err := url.PathUnescape(rewritten); err == nil {
		r.URL.Path = unescaped
	} else {
		r.URL.Path = rewritten
	}
	proxy.ServeHTTP(w, r)
}

// SetReady marks the server as ready to serve traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Handler exposes the full middleware-wrapped handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until ctx is canceled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	s.SetReady(true)

	// Best effort: no-op outside systemd
	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err == nil && sent {
		slog.Debug("notified systemd of readiness")
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	slog.Info("router listening",
		"address", s.httpServer.Addr,
		"rules", s.rules.Len(),
	)

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err == nil && sent {
		slog.Debug("notified systemd of shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down router")
	return s.httpServer.Shutdown(shutdownCtx)
}

// Run starts the server under an errgroup and waits for completion. The
// caller owns signal handling on ctx.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("router config",
		slog.String("name", s.config.Name),
		slog.String("version", s.config.Version),
		slog.String("address", s.httpServer.Addr),
		slog.Any("rateLimit", s.config.RateLimit),
		slog.Int("rateLimitBurst", s.config.RateLimitBurst),
		slog.Duration("readTimeout", s.config.ReadTimeout),
		slog.Duration("writeTimeout", s.config.WriteTimeout),
		slog.Duration("idleTimeout", s.config.IdleTimeout),
		slog.Duration("shutdownTimeout", s.config.ShutdownTimeout),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("router error: %w", err)
	}

	slog.Info("router stopped gracefully")
	return nil
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	serializer.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// handleReady reports readiness to serve traffic.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	if !ready {
		serializer.RespondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not ready",
			Timestamp: time.Now().UTC(),
			Reason:    "server is draining or has not finished startup",
		})
		return
	}

	serializer.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
	})
}
