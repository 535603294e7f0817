package handler

import "errors"

var ErrNilResponse = errors.New("handler: handler returned nil response")
