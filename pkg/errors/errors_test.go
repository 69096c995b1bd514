package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(cause, "permission check failed")

	require.Equal(t, "permission check failed: boom", err.Error())
	require.Equal(t, ErrInternalServer.Code, err.Code)
	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
	require.ErrorIs(t, err, cause)
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", http.StatusBadRequest)
	with := base.WithInternal(stdErrors.New("oops"))

	require.NotSame(t, base, with)
	require.Nil(t, base.Internal)
	require.NotNil(t, with.Internal)
}

func TestIsMatchesByCode(t *testing.T) {
	require.ErrorIs(t, NewNotFound("CV not found"), ErrNotFound)
	require.ErrorIs(t, NewGone("Invitation has expired"), ErrGone)
	require.ErrorIs(t, fmt.Errorf("handler: %w", NewConflict("User already exists")), ErrConflict)
	require.NotErrorIs(t, NewBadRequest("nope"), ErrNotFound)
}

func TestConstructorsKeepStatus(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NewBadRequest("invalid payload"), "BAD_REQUEST", http.StatusBadRequest},
		{NewNotFound("CV not found"), "NOT_FOUND", http.StatusNotFound},
		{NewConflict("User already exists"), "CONFLICT", http.StatusConflict},
		{NewGone("Invitation has already been used"), "GONE", http.StatusGone},
	}
	for _, tc := range cases {
		require.Equal(t, tc.code, tc.err.Code)
		require.Equal(t, tc.status, tc.err.StatusCode)
	}
	// The shared sentinels are never mutated.
	require.Equal(t, "Invalid request", ErrBadRequest.Message)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))
	require.Same(t, ErrNotFound, FromError(ErrNotFound))

	wrapped := fmt.Errorf("outer: %w", NewNotFound("User not found"))
	require.Equal(t, "User not found", FromError(wrapped).Message)

	out := FromError(stdErrors.New("raw"))
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.NotNil(t, out.Internal)

	out = FromError(fmt.Errorf("cv service: list: %w", context.DeadlineExceeded))
	require.Equal(t, http.StatusServiceUnavailable, out.StatusCode)
	require.ErrorIs(t, out, context.DeadlineExceeded)
}
