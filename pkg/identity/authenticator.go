package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

const defaultLeeway = 30 * time.Second

// Authenticator verifies a bearer token and returns its subject.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (subject string, err error)
}

// Config selects and configures the bearer authenticator. JWKSURL wins over
// JWTSecret when both are set.
type Config struct {
	JWTSecret   string `env:"AUTH_JWT_SECRET"`
	JWKSURL     string `env:"AUTH_JWKS_URL"`
	Issuer      string `env:"AUTH_ISSUER"`
	Audience    string `env:"AUTH_AUDIENCE"`
	GuestHeader string `env:"AUTH_GUEST_HEADER" envDefault:"X-Guest-Session-ID"`
}

// NewAuthenticator builds the authenticator described by cfg. With neither a
// secret nor a JWKS URL it returns an authenticator that rejects every token
// with a configuration error, so guest traffic keeps working.
func NewAuthenticator(ctx context.Context, cfg Config) (Authenticator, error) {
	var opts []AuthOption
	if cfg.Issuer != "" {
		opts = append(opts, WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, WithAudience(cfg.Audience))
	}
	switch {
	case cfg.JWKSURL != "":
		return NewJWKSAuthenticator(ctx, cfg.JWKSURL, opts...)
	case cfg.JWTSecret != "":
		return NewHMACAuthenticator([]byte(cfg.JWTSecret), opts...)
	default:
		return Unconfigured{}, nil
	}
}

type authOptions struct {
	issuer   string
	audience string
	leeway   time.Duration
}

// AuthOption tunes token validation.
type AuthOption func(*authOptions)

func WithIssuer(iss string) AuthOption   { return func(o *authOptions) { o.issuer = iss } }
func WithAudience(aud string) AuthOption { return func(o *authOptions) { o.audience = aud } }

// WithLeeway sets the allowed clock skew for exp and nbf checks.
func WithLeeway(d time.Duration) AuthOption { return func(o *authOptions) { o.leeway = d } }

func newParser(methods []string, opts []AuthOption) (*jwt.Parser, authOptions) {
	o := authOptions{leeway: defaultLeeway}
	for _, opt := range opts {
		opt(&o)
	}
	popts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithLeeway(o.leeway),
		jwt.WithExpirationRequired(),
	}
	if o.issuer != "" {
		popts = append(popts, jwt.WithIssuer(o.issuer))
	}
	if o.audience != "" {
		popts = append(popts, jwt.WithAudience(o.audience))
	}
	return jwt.NewParser(popts...), o
}

func subjectOf(token *jwt.Token, err error) (string, error) {
	if err != nil {
		return "", errors.Join(apperr.ErrUnauthorized, ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", errors.Join(apperr.ErrUnauthorized, ErrInvalidToken)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.Join(apperr.ErrUnauthorized, ErrMissingSubject)
	}
	return sub, nil
}

// HMACAuthenticator verifies HS256 tokens signed with a shared secret.
type HMACAuthenticator struct {
	secret []byte
	parser *jwt.Parser
	opts   authOptions
}

func NewHMACAuthenticator(secret []byte, opts ...AuthOption) (*HMACAuthenticator, error) {
	if len(secret) == 0 {
		return nil, errors.Join(apperr.ErrConfiguration, ErrMissingSigningKey)
	}
	parser, o := newParser([]string{jwt.SigningMethodHS256.Name}, opts)
	return &HMACAuthenticator{secret: secret, parser: parser, opts: o}, nil
}

func (a *HMACAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	return subjectOf(a.parser.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}))
}

// Issue signs a token for subject. Used by the CLI and tests; production
// tokens come from the identity provider.
func (a *HMACAuthenticator) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    a.opts.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if a.opts.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.opts.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("identity: sign token: %w", err)
	}
	return signed, nil
}

// JWKSAuthenticator verifies RS/ES tokens against a remote key set that is
// refreshed in the background for the lifetime of ctx.
type JWKSAuthenticator struct {
	keys   keyfunc.Keyfunc
	parser *jwt.Parser
}

func NewJWKSAuthenticator(ctx context.Context, jwksURL string, opts ...AuthOption) (*JWKSAuthenticator, error) {
	if jwksURL == "" {
		return nil, errors.Join(apperr.ErrConfiguration, ErrMissingJWKSURL)
	}
	keys, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, errors.Join(apperr.ErrConfiguration, fmt.Errorf("identity: init JWKS: %w", err))
	}
	return NewKeyfuncAuthenticator(keys, opts...), nil
}

// NewKeyfuncAuthenticator verifies tokens with an already built key set, for
// example one loaded from static JSON with keyfunc.NewJWKSetJSON.
func NewKeyfuncAuthenticator(keys keyfunc.Keyfunc, opts ...AuthOption) *JWKSAuthenticator {
	parser, _ := newParser([]string{
		jwt.SigningMethodRS256.Name,
		jwt.SigningMethodRS384.Name,
		jwt.SigningMethodRS512.Name,
		jwt.SigningMethodES256.Name,
	}, opts)
	return &JWKSAuthenticator{keys: keys, parser: parser}
}

func (a *JWKSAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	return subjectOf(a.parser.ParseWithClaims(token, &jwt.RegisteredClaims{}, a.keys.Keyfunc))
}

// Unconfigured rejects all bearer tokens with a configuration error.
type Unconfigured struct{}

func (Unconfigured) Authenticate(context.Context, string) (string, error) {
	return "", errors.Join(apperr.ErrConfiguration, ErrNoAuthenticator)
}
