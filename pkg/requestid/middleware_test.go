package requestid_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/requestid"
)

func serve(t *testing.T, header string) (ctxID, respID string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return ctxID, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates id when absent", func(t *testing.T) {
		t.Parallel()
		ctxID, respID := serve(t, "")
		assert.NotEmpty(t, ctxID)
		assert.Equal(t, ctxID, respID)
	})

	t.Run("reuses valid client id", func(t *testing.T) {
		t.Parallel()
		ctxID, respID := serve(t, "checkout-42_a")
		assert.Equal(t, "checkout-42_a", ctxID)
		assert.Equal(t, "checkout-42_a", respID)
	})

	t.Run("replaces invalid client id", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"a b", "x<script>", "a/b", string(bytes.Repeat([]byte("a"), 129))} {
			ctxID, respID := serve(t, bad)
			assert.NotEqual(t, bad, ctxID)
			assert.Equal(t, ctxID, respID)
		}
	})
}

func TestLogExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithContextExtractors(requestid.LogExtractor()),
	)

	log.InfoContext(requestid.WithContext(context.Background(), "req-1"), "hello")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	buf.Reset()
	log.InfoContext(context.Background(), "hello")
	assert.NotContains(t, buf.String(), "request_id")

}
