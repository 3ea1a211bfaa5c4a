// Package httpserver runs the kanbax HTTP listener with graceful shutdown
// and serves the health endpoint.
//
// Server.Run blocks until its context is cancelled, then shuts down within
// the configured deadline. The binary cancels on SIGINT/SIGTERM. Start and
// stop hooks run around the listener's life. Errors are wrapped with
// ErrStart and ErrShutdown.
//
// HealthCheckHandler answers liveness when given no checks and readiness
// otherwise, naming every failing dependency:
//
//	r.Get("/healthz", httpserver.HealthCheckHandler(log, map[string]httpserver.Check{
//		"postgres": pg.Healthcheck(pool),
//		"redis":    redis.Healthcheck(client),
//	}))
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package httpserver
