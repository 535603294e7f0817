package identity

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// Middleware resolves the request identity and stores it in the context.
// Requests with neither credential pass through anonymously; requests with a
// bad credential are rejected.
func Middleware(res *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := res.Resolve(r)
			switch {
			case err == nil:
				r = r.WithContext(WithContext(r.Context(), id))
			case errors.Is(err, ErrMissingIdentity):
			default:
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require rejects requests without a resolved identity.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			writeError(w, errors.Join(apperr.ErrUnauthorized, ErrMissingIdentity))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests not made by an authenticated user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := FromContext(r.Context()); !ok || !id.IsUser() {
			writeError(w, errors.Join(apperr.ErrUnauthorized, ErrUserRequired))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, apperr.PublicMessage(err), apperr.HTTPStatus(err))
}
