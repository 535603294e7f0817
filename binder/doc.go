// Package binder decodes HTTP requests into handler request structs.
//
// JSON reads a size-limited application/json body in strict mode. Query fills
// fields tagged `query:"name"` from the URL query. Both return errors joined
// with apperr.ErrValidation so handlers render them as 400s.
package binder
