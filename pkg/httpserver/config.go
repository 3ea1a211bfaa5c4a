package httpserver

import (
	"log/slog"
	"time"
)

// Config is loaded from the environment by pkg/config.
type Config struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Option adjusts a Server before it starts.
type Option func(*Server)

func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.cfg.Addr = addr
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.cfg.ShutdownTimeout = d
		}
	}
}

// WithLogger sets the logger for lifecycle records. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStartHook runs h once the listener is about to accept connections.
func WithStartHook(h func(*slog.Logger)) Option {
	return func(s *Server) {
		if h != nil {
			s.onStart = append(s.onStart, h)
		}
	}
}

// WithStopHook runs h after the server has shut down.
func WithStopHook(h func(*slog.Logger)) Option {
	return func(s *Server) {
		if h != nil {
			s.onStop = append(s.onStop, h)
		}
	}
}
