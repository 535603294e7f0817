package main

import (
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/meterkit/pkg/httpserver"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/requestid"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := root.log.With(logger.Component("meterd"))
			c, cleanup, err := connect(ctx, root.cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()

			svc, err := buildBilling(ctx, root.cfg, c, log)
			if err != nil {
				return err
			}

			srv := httpserver.NewFromConfig(root.cfg.HTTP, append(c.checks, httpserver.WithLogger(log))...)

			r := chi.NewRouter()
			r.Use(requestid.Middleware)
			r.Get("/healthz", srv.LivenessHandler())
			r.Get("/readyz", srv.ReadinessHandler())
			r.Mount("/", svc.Handle())

			return srv.Run(ctx, http.Handler(r))
		},
	}
}
