package billing

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrymomot/meterkit/handler"
	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/entitlement"
	"github.com/dmitrymomot/meterkit/pkg/identity"
	"github.com/dmitrymomot/meterkit/pkg/reconcile"
)

// maxWebhookBody bounds processor webhook payloads.
const maxWebhookBody = 1 << 20

var ErrWebhookTooLarge = errors.New("billing: webhook payload too large")

// ReconcileRequest names the user to reconcile. An empty UserID means the
// caller.
type ReconcileRequest struct {
	UserID string `json:"userId,omitempty"`
}

type PlanResponse struct {
	Plan       entitlement.PlanType `json:"plan"`
	IsPro      bool                 `json:"isPro"`
	UpgradedAt *time.Time           `json:"upgradedAt,omitempty"`
}

type WebhookResponse struct {
	Received bool              `json:"received"`
	Outcome  reconcile.Outcome `json:"outcome"`
}

func (s *Service) reconcile(ctx handler.Context, req ReconcileRequest) handler.Response {
	requesting := caller(ctx)
	target := requesting
	if req.UserID != "" {
		target = identity.User(req.UserID)
	}
	rec, err := s.deps.Reconciler.Reconcile(ctx, target, requesting)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(PlanResponse{Plan: rec.PlanType, IsPro: rec.IsPro, UpgradedAt: rec.UpgradedAt})
}

// webhook acknowledges with 2xx once an event is verified and handled. Any
// error status makes the processor redeliver.
func (s *Service) webhook(ctx handler.Context, _ struct{}) handler.Response {
	r := ctx.Request()
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		return handler.JSONError(errors.Join(apperr.ErrValidation, fmt.Errorf("billing: read webhook body: %w", err)))
	}
	if len(payload) > maxWebhookBody {
		return handler.JSONError(errors.Join(apperr.ErrValidation, ErrWebhookTooLarge))
	}

	evt, err := s.deps.Processor.ParseEvent(ctx, payload, r.Header.Get(s.deps.Processor.SignatureHeader()))
	if err != nil {
		return handler.JSONError(err)
	}
	outcome, err := s.deps.Reconciler.HandleEvent(ctx, evt)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(WebhookResponse{Received: true, Outcome: outcome})
}
