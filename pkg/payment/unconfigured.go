package payment

import (
	"context"
	"errors"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// Unconfigured is the processor used when no credentials are present.
type Unconfigured struct{}

var errUnconfigured = errors.Join(apperr.ErrConfiguration, ErrNotConfigured)

func (Unconfigured) Name() string            { return "unconfigured" }
func (Unconfigured) SignatureHeader() string { return "" }

func (Unconfigured) CreateCheckoutSession(context.Context, SessionRequest) (*Session, error) {
	return nil, errUnconfigured
}

func (Unconfigured) RetrieveSession(context.Context, string) (*SessionStatus, error) {
	return nil, errUnconfigured
}

func (Unconfigured) CreatePortalSession(context.Context, PortalRequest) (*Portal, error) {
	return nil, errUnconfigured
}

func (Unconfigured) ParseEvent(context.Context, []byte, string) (*Event, error) {
	return nil, errUnconfigured
}
