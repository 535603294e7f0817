package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// DefaultMaxJSONSize bounds request bodies.
const DefaultMaxJSONSize = 1 << 20

// JSON binds an application/json body into v. Unknown fields and trailing
// data are rejected. An empty body on a request with no content type is not
// applicable, so optional-body endpoints may be called bare.
func JSON() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			if r.ContentLength == 0 {
				return ErrBinderNotApplicable
			}
			return errors.Join(apperr.ErrValidation, ErrMissingContentType)
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return errors.Join(apperr.ErrValidation, fmt.Errorf("%w: expected application/json", ErrUnsupportedMediaType))
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, DefaultMaxJSONSize+1))
		if err != nil {
			return errors.Join(apperr.ErrValidation, fmt.Errorf("%w: %v", ErrFailedToParseJSON, err))
		}
		if len(body) > DefaultMaxJSONSize {
			return errors.Join(apperr.ErrValidation, fmt.Errorf("%w: body exceeds %d bytes", ErrFailedToParseJSON, DefaultMaxJSONSize))
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return errors.Join(apperr.ErrValidation, fmt.Errorf("%w: empty body", ErrFailedToParseJSON))
			}
			return errors.Join(apperr.ErrValidation, fmt.Errorf("%w: %v", ErrFailedToParseJSON, err))
		}
		if dec.More() {
			return errors.Join(apperr.ErrValidation, fmt.Errorf("%w: unexpected data after JSON object", ErrFailedToParseJSON))
		}
		return nil
	}
}
