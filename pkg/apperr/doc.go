// Package apperr defines the error kinds shared by every meterkit component.
//
// Components keep their own sentinel errors (for example
// purchase.ErrPaymentIncomplete) and join them with exactly one kind from this
// package before returning:
//
//	return errors.Join(apperr.ErrNotFound, ErrProductNotFound)
//
// Callers branch on the kind with errors.Is, and the HTTP layer maps a kind to
// a status code and a stable public message with HTTPStatus and PublicMessage.
// Raw upstream errors (driver, network, processor SDK) are logged by the
// component that saw them and never joined into the returned error.
package apperr
