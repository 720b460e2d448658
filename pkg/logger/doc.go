// Package logger builds *slog.Logger instances for the storefront binaries and
// provides attribute helpers so every package names its log fields the same
// way.
//
// New applies Option functions (format, level, static attributes, context
// extractors) and wraps the resulting handler with NewContextHandler, which
// pulls request-scoped values out of context.Context on every record.
// ContextWithAttrs tags every record logged under a context.
//
// Usage:
//
//	log := logger.New(logger.WithEnvironment(cfg.Env, "storefront"))
//	log.WarnContext(ctx, "cart refresh failed", logger.Error(err))
//
// Library packages never log to the default logger; they accept a logger via
// their own WithLogger option and fall back to Discard.
package logger
