// Package identity resolves an inbound request to the key that usage and
// entitlement records are partitioned by.
//
// An Identity is either an authenticated user (the subject of a verified
// bearer token) or a guest session id supplied by the client. A request never
// carries both: a present bearer credential must verify, and an invalid one is
// rejected rather than downgraded to the guest header.
//
//	auth, _ := identity.NewHMACAuthenticator([]byte(cfg.JWTSecret))
//	res := identity.NewResolver(auth)
//
//	r.Use(identity.Middleware(res))
//	r.With(identity.RequireUser).Post("/plan/reconcile", ...)
//
// Guest ids are not validated server-side beyond length and charset; they are
// trusted as given and are only as durable as the client that generated them.
package identity
