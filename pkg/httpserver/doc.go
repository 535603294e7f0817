// Package httpserver runs an http.Handler with sane timeouts and graceful
// shutdown on context cancellation or SIGINT/SIGTERM.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithHealthCheck("postgres", pg.Healthcheck(pool)),
//	)
//	r.Get("/livez", srv.LivenessHandler())
//	r.Get("/readyz", srv.ReadinessHandler())
//	return srv.Run(ctx, r)
//
// Run wraps listen failures with ErrStart and Shutdown wraps drain failures
// with ErrShutdown.
package httpserver
