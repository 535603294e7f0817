package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// JSONResponse is the envelope of every JSON body.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) { r.body.Meta = meta }
}

// JSON renders v as the data of a 200 response. An error is rendered as
// JSONError would.
func JSON(v any, opts ...JSONOption) Response {
	if err, ok := v.(error); ok {
		return JSONError(err, opts...)
	}
	r := &jsonResponse{status: http.StatusOK, body: JSONResponse{Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders err with the status of its apperr kind.
func JSONError(err error, opts ...JSONOption) Response {
	r := &jsonResponse{
		status: apperr.HTTPStatus(err),
		body:   JSONResponse{Error: ErrorToDetail(err)},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ErrorToDetail builds the public error detail for err.
func ErrorToDetail(err error) *ErrorDetail {
	d := &ErrorDetail{
		Code:      apperr.Code(err),
		Message:   apperr.PublicMessage(err),
		Retryable: apperr.IsRetryable(err),
	}
	if status := apperr.HTTPStatus(err); status >= 400 && status < 500 {
		if msg := clientMessage(err); msg != "" {
			d.Message = msg
		}
	}
	return d
}

// clientMessage joins the messages of the non-kind errors in err.
func clientMessage(err error) string {
	var parts []string
	var walk func(error)
	walk = func(e error) {
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if _, ok := e.(*apperr.Kind); ok {
			return
		}
		parts = append(parts, e.Error())
	}
	walk(err)
	return strings.Join(parts, "; ")
}
