// Package handler provides typed HTTP handlers that bind a request struct and
// return a Response.
//
//	type consumeRequest struct {
//		Amount int `json:"amount"`
//	}
//
//	func consume(ctx handler.Context, req consumeRequest) handler.Response {
//		d, err := counter.CheckAndConsume(ctx, id, quota)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(d)
//	}
//
//	r.Post("/usage/consume", handler.Wrap(consume,
//		handler.WithBinder[handler.Context, consumeRequest](binder.JSON()),
//		handler.WithErrorHandler[handler.Context, consumeRequest](handler.NewErrorHandler(log)),
//	))
//
// Errors are rendered as a JSON envelope whose code is the apperr kind of the
// error. Messages of client errors are taken from the wrapped package errors;
// server errors only expose the kind's public message.
package handler
