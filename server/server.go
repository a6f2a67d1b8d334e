package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/logger"

	"github.com/Ashenafi-pixel/lixi-wheel-server/config"
	"github.com/Ashenafi-pixel/lixi-wheel-server/ledger"
	"github.com/Ashenafi-pixel/lixi-wheel-server/prize"
)

// Ledger is the allocation ledger the handlers drive.
type Ledger interface {
	Register(ctx context.Context, name, phone string) (ledger.RegisterResult, error)
	Allocate(ctx context.Context, participantID string) (ledger.AllocateResult, error)
	ListEntries(ctx context.Context) ([]ledger.Entry, error)
}

// Pinger reports store health for /health. Optional.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg     *config.Config
	ledger  Ledger
	catalog *prize.Catalog
	pinger  Pinger
}

func New(cfg *config.Config, l Ledger, catalog *prize.Catalog) *Server {
	return &Server{cfg: cfg, ledger: l, catalog: catalog}
}

// WithPinger makes /health check the store.
func (s *Server) WithPinger(p Pinger) *Server {
	s.pinger = p
	return s
}

// Handler returns the API routes wrapped in the CORS and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /api/prizes", s.prizes)
	mux.HandleFunc("POST /api/register", s.register)
	mux.HandleFunc("POST /api/spin", s.spin)
	mux.HandleFunc("GET /api/admin/entries", s.adminEntries)
	return s.cors(requestLogger(noStore(mux)))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Port
	if port <= 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("lixi: listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger.Infof("lixi: shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) cors(h http.Handler) http.Handler {
	origin := s.cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Passcode")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// requestLogger logs method and path for each request (no body or secrets).
func requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		logger.Infof("lixi %s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func noStore(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			logger.Errorf("lixi: health: store unreachable: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "service": "lixi"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "lixi"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
