package identity

import "errors"

var (
	ErrMissingIdentity    = errors.New("identity: request carries no credential or guest session")
	ErrInvalidToken       = errors.New("identity: invalid bearer token")
	ErrMissingSubject     = errors.New("identity: token has no subject")
	ErrInvalidGuestID     = errors.New("identity: invalid guest session id")
	ErrUserRequired       = errors.New("identity: authenticated user required")
	ErrNoAuthenticator    = errors.New("identity: bearer authentication is not configured")
	ErrMissingSigningKey  = errors.New("identity: signing key is required")
	ErrMissingJWKSURL     = errors.New("identity: JWKS URL is required")
	ErrInvalidIdentityKey = errors.New("identity: malformed identity key")
)
