// Package logger builds the structured slog.Logger used across meterkit.
//
// New returns a *slog.Logger configured through Option functions: output
// format (json or text), minimum level, static attributes and ContextExtractor
// callbacks that copy request-scoped values (request id, resolved identity)
// into every record logged with a context.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "meterd"),
//		logger.WithContextExtractors(requestid.LogExtractor, identity.LogExtractor),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "purchase recorded",
//		logger.SessionID(sessionID),
//		logger.ProductID(productID),
//	)
//
// Attribute helpers in attr.go keep key names consistent between components so
// that a single session or identity can be traced through the ledger, the
// reconciler and the payment processor calls. Error and Identity return an
// empty slog.Attr for zero values, which slog drops.
package logger
