package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

const (
	// DefaultGuestHeader carries the client-generated guest session id.
	DefaultGuestHeader = "X-Guest-Session-ID"
	// GuestQueryParam is consulted when the header is absent, for redirects
	// back from the processor's hosted pages.
	GuestQueryParam = "guest_session_id"
)

// Resolver maps a request to an Identity.
type Resolver struct {
	auth        Authenticator
	guestHeader string
}

type ResolverOption func(*Resolver)

// WithGuestHeader overrides DefaultGuestHeader.
func WithGuestHeader(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.guestHeader = name
		}
	}
}

// NewResolver returns a resolver backed by auth. A nil auth behaves like
// Unconfigured.
func NewResolver(auth Authenticator, opts ...ResolverOption) *Resolver {
	if auth == nil {
		auth = Unconfigured{}
	}
	r := &Resolver{auth: auth, guestHeader: DefaultGuestHeader}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the user identity when a bearer credential is present,
// otherwise the guest identity from the guest header or query parameter.
// A bearer credential that fails verification is an error; the guest
// session is not consulted.
func (r *Resolver) Resolve(req *http.Request) (Identity, error) {
	if raw := req.Header.Get("Authorization"); raw != "" {
		token, ok := bearerToken(raw)
		if !ok {
			return Identity{}, errors.Join(apperr.ErrUnauthorized, ErrInvalidToken)
		}
		sub, err := r.auth.Authenticate(req.Context(), token)
		if err != nil {
			return Identity{}, err
		}
		return User(sub), nil
	}

	guest := strings.TrimSpace(req.Header.Get(r.guestHeader))
	if guest == "" {
		guest = strings.TrimSpace(req.URL.Query().Get(GuestQueryParam))
	}
	if guest == "" {
		return Identity{}, errors.Join(apperr.ErrUnauthorized, ErrMissingIdentity)
	}
	if !ValidGuestID(guest) {
		return Identity{}, errors.Join(apperr.ErrValidation, ErrInvalidGuestID)
	}
	return Guest(guest), nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
