package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/handler"
	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		level  string
	}{
		{"client error", errors.Join(apperr.ErrValidation, errors.New("bad input")), http.StatusBadRequest, "WARN"},
		{"server error", errors.New("boom"), http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&buf, nil))

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/checkout", nil)
			handler.NewErrorHandler(log)(handler.NewContext(w, r), tt.err)

			assert.Equal(t, tt.status, w.Code)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "request error", entry["msg"])
			assert.Equal(t, "/checkout", entry["path"])
			assert.EqualValues(t, tt.status, entry["status_code"])
		})
	}
}
