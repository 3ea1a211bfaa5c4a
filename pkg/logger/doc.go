// Package logger builds context-aware slog loggers and provides attribute
// helpers so every component logs the same keys (user_id, company_id, tier,
// resource, provider, ...).
//
// New returns a *slog.Logger configured by functional options. The handler is
// wrapped by NewLogHandlerDecorator, which runs registered ContextExtractor
// callbacks on every record to inject request-scoped values.
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "kanbax"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.WarnContext(ctx, "entitlement check failed open",
//	    logger.UserID(42),
//	    logger.Resource("boards"),
//	    logger.Error(err),
//	)
//
// Components accept a logger through their own options and fall back to
// Discard when none is given.
package logger
