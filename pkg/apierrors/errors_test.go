package apierrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"unauthorized", Unauthorized("invalid token", nil), ErrUnauthorized},
		{"forbidden", Forbidden("missing scope"), ErrForbidden},
		{"invalid argument", InvalidArgument("page_size out of range"), ErrInvalidArgument},
		{"not found", NotFound("no such user"), ErrNotFound},
		{"internal", Internal("record missing order field", nil), ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.kind))
		})
	}
}

func TestErrorWrapsCause(t *testing.T) {
	cause := errors.New("oidc: token expired")
	err := Unauthorized("invalid token", cause)

	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.True(t, errors.Is(err, cause))
	// Error() includes the cause for logging.
	assert.Contains(t, err.Error(), "token expired")
	// Message() never does.
	assert.Equal(t, "invalid token", Message(err))
}

func TestMessageFallback(t *testing.T) {
	assert.Equal(t, "internal server error", Message(errors.New("pq: connection refused")))
	assert.Equal(t, "internal server error", Message(fmt.Errorf("wrapped: %w", errors.New("boom"))))
}

func TestMessageUnwrapsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("listing users: %w", InvalidArgument("order_by must not be empty"))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, "order_by must not be empty", Message(err))
}
