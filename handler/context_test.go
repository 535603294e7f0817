package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/meterkit/handler"
)

type ctxKey struct{}

func TestNewContext(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), ctxKey{}, "v"), time.Minute)
	defer cancel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(parent)
	ctx := handler.NewContext(w, r)

	assert.Same(t, r, ctx.Request())
	assert.Equal(t, w, ctx.ResponseWriter())
	assert.Equal(t, "v", ctx.Value(ctxKey{}))

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	want, _ := parent.Deadline()
	assert.Equal(t, want, deadline)

	assert.NoError(t, ctx.Err())
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
