package billing

import (
	"github.com/dmitrymomot/meterkit/handler"
	"github.com/dmitrymomot/meterkit/pkg/checkout"
)

type CheckoutRequest struct {
	Kind string `json:"kind"`
	checkout.Params
	Email string `json:"email,omitempty"`
}

// VerifyRequest accepts the ids either in the body or in the query string
// the processor redirects back with.
type VerifyRequest struct {
	SessionID string `json:"sessionId" query:"session_id"`
	ProductID string `json:"productId" query:"product_id"`
}

func (s *Service) createCheckout(ctx handler.Context, req CheckoutRequest) handler.Response {
	intent, err := checkout.ParseIntent(req.Kind, req.Params)
	if err != nil {
		return handler.JSONError(err)
	}
	var opts []checkout.CreateOption
	if req.Email != "" {
		opts = append(opts, checkout.WithEmail(req.Email))
	}
	sess, err := s.deps.Checkout.Create(ctx, caller(ctx), intent, opts...)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(sess)
}

func (s *Service) verifyCheckout(ctx handler.Context, req VerifyRequest) handler.Response {
	res, err := s.deps.Verifier.VerifyAndRecord(ctx, req.SessionID, req.ProductID)
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(res)
}

func (s *Service) portal(ctx handler.Context, _ struct{}) handler.Response {
	p, err := s.deps.Checkout.PortalLink(ctx, caller(ctx))
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.JSON(p)
}
