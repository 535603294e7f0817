package billing

import (
	"time"

	"github.com/dmitrymomot/meterkit/handler"
	"github.com/dmitrymomot/meterkit/pkg/entitlement"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

// UsageResponse reports the caller's standing for today. MessagesLeft is
// entitlement.Unlimited for pro users.
type UsageResponse struct {
	MessagesLeft int       `json:"messagesLeft"`
	Count        int       `json:"count"`
	Quota        int       `json:"quota"`
	ResetAt      time.Time `json:"resetAt"`
	Approximate  bool      `json:"approximate,omitempty"`
}

// ConsumeResponse is the outcome of an allowed consumption.
type ConsumeResponse struct {
	Allowed      bool      `json:"allowed"`
	MessagesLeft int       `json:"messagesLeft"`
	Count        int       `json:"count"`
	Quota        int       `json:"quota"`
	ResetAt      time.Time `json:"resetAt"`
}

type EntitlementsResponse struct {
	Entitlements entitlement.Set      `json:"entitlements"`
	Plan         entitlement.PlanType `json:"plan"`
	UpgradedAt   *time.Time           `json:"upgradedAt,omitempty"`
}

func (s *Service) usage(ctx handler.Context, _ struct{}) handler.Response {
	id := caller(ctx)
	set, _ := s.deps.Entitlements.Entitlements(ctx, id)
	snap := s.deps.Counter.Peek(ctx, id, set.DailyMessageQuota)
	return handler.JSON(UsageResponse{
		MessagesLeft: snap.Remaining,
		Count:        snap.Count,
		Quota:        snap.Quota,
		ResetAt:      snap.ResetAt,
		Approximate:  snap.Approximate,
	})
}

func (s *Service) consume(ctx handler.Context, _ struct{}) handler.Response {
	id := caller(ctx)
	set, _ := s.deps.Entitlements.Entitlements(ctx, id)

	d, err := s.deps.Counter.Enforce(ctx, id, set.DailyMessageQuota, usage.FailClosed)
	if err != nil {
		return handler.JSONError(err)
	}
	if !d.Allowed {
		return handler.JSONError(d.Err(), handler.WithJSONMeta(map[string]any{
			"count":   d.Count,
			"quota":   d.Quota,
			"resetAt": d.ResetAt,
		}))
	}
	return handler.JSON(ConsumeResponse{
		Allowed:      true,
		MessagesLeft: d.Remaining,
		Count:        d.Count,
		Quota:        d.Quota,
		ResetAt:      d.ResetAt,
	})
}

func (s *Service) entitlements(ctx handler.Context, _ struct{}) handler.Response {
	set, rec := s.deps.Entitlements.Entitlements(ctx, caller(ctx))
	return handler.JSON(EntitlementsResponse{
		Entitlements: set,
		Plan:         set.Plan,
		UpgradedAt:   rec.UpgradedAt,
	})
}
