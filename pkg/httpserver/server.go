package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/kanbax/pkg/logger"
)

var (
	ErrStart    = errors.New("httpserver: failed to start")
	ErrShutdown = errors.New("httpserver: graceful shutdown failed")
)

// Server serves one handler until its context ends.
type Server struct {
	cfg     Config
	log     *slog.Logger
	onStart []func(*slog.Logger)
	onStop  []func(*slog.Logger)

	mu       sync.Mutex
	srv      *http.Server
	stopOnce sync.Once
}

// New returns a Server listening on :8080 with a 5s shutdown deadline unless
// overridden.
func New(opts ...Option) *Server {
	return NewFromConfig(Config{}, opts...)
}

// NewFromConfig applies cfg, filling zero fields with defaults, then opts.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{cfg: cfg, log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves h until ctx is done, then shuts down gracefully. Signal
// handling belongs to the caller, typically via signal.NotifyContext.
// A nil h answers 404 to everything.
func (s *Server) Run(ctx context.Context, h http.Handler) error {
	if h == nil {
		h = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, errors.New("server already running"))
	}
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.srv = srv
	s.mu.Unlock()

	for _, hook := range s.onStart {
		hook(s.log)
	}
	s.log.Info("http server listening", slog.String("addr", srv.Addr))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	var err error
	select {
	case <-ctx.Done():
		if serr := s.Shutdown(context.Background()); serr != nil {
			return serr
		}
		err = <-errCh
	case err = <-errCh:
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrStart, err)
	}
	return nil
}

// Shutdown drains in-flight requests within the shutdown deadline. Calls
// after the first, or before Run, are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	var err error
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
		s.log.Info("http server stopped", slog.String("addr", srv.Addr))
		for _, hook := range s.onStop {
			hook(s.log)
		}
	})
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
