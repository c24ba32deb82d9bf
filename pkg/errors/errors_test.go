package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := InvalidInput("price_min must not exceed price_max")
	assert.Contains(t, e.Error(), "INVALID_INPUT")
	assert.Contains(t, e.Error(), "price_min must not exceed price_max")

	wrapped := Internal(errors.New("boom"))
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := Unavailable(cause)
	assert.True(t, errors.Is(e, ErrServiceUnavail))
	assert.True(t, errors.Is(e, cause))
}

func TestUpstreamTimeout(t *testing.T) {
	e := UpstreamTimeout("snapshot store", errors.New("context deadline exceeded"))
	assert.Equal(t, http.StatusServiceUnavailable, e.Status)
	assert.True(t, errors.Is(e, ErrUpstreamTimeout))
	assert.True(t, IsRetryable(e))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(InvalidInput("nope")))
	assert.False(t, IsRetryable(errors.New("random")))
	assert.True(t, IsRetryable(ErrServiceUnavail))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error not found", NotFound("style", "AB123"), http.StatusNotFound},
		{"app error invalid", InvalidInput("bad"), http.StatusBadRequest},
		{"app error timeout", UpstreamTimeout("cache", nil), http.StatusServiceUnavailable},
		{"wrapped sentinel", fmt.Errorf("outer: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped invalid", fmt.Errorf("outer: %w", ErrInvalidInput), http.StatusBadRequest},
		{"unknown", errors.New("anything"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
