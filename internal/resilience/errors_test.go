package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("bad request"), false},
		{"transient wrapper", NewTransientError(errors.New("throttled"), 429), true},
		{"wrapped transient", fmt.Errorf("call: %w", NewTransientError(errors.New("busy"), 503)), true},
		{"eris wrapped transient", eris.Wrap(NewTransientError(errors.New("busy"), 503), "reddit: fetch"), true},
		{"connection reset errno", syscall.ECONNRESET, true},
		{"connection refused errno", syscall.ECONNREFUSED, true},
		{"reset message", errors.New("read tcp: connection reset by peer"), true},
		{"dns message", errors.New("dial tcp: lookup api.example.com: no such host"), true},
		{"io timeout message", errors.New("read tcp 10.0.0.1:443: i/o timeout"), true},
		{"validation error", errors.New("title is required"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("rate limited")
	te := NewTransientError(cause, 429)

	assert.Equal(t, "rate limited", te.Error())
	assert.ErrorIs(t, te, cause)
	assert.Equal(t, 429, te.StatusCode)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 201, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
