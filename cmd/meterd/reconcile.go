package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/logger"
)

var ErrUserFlagRequired = errors.New("meterd: --user is required")

// newReconcileCmd is the operator repair path for a lost upgrade webhook.
// It runs the same idempotent reconciler as the HTTP route, acting as the
// user being repaired.
func newReconcileCmd(root *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Mark a user's plan as pro",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				return errors.Join(apperr.ErrValidation, ErrUserFlagRequired)
			}
			ctx := cmd.Context()
			log := root.log.With(logger.Component("meterd"), slog.Bool("operator", true))

			c, cleanup, err := connect(ctx, root.cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()

			reconciler, _, err := c.reconciler(ctx, root.cfg, log)
			if err != nil {
				return err
			}
			id := identity.User(userID)
			rec, err := reconciler.Reconcile(ctx, id, id)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"identity":   rec.Identity.Key(),
				"plan":       rec.PlanType,
				"isPro":      rec.IsPro,
				"upgradedAt": rec.UpgradedAt,
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to upgrade")
	return cmd
}
