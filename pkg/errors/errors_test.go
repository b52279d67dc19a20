package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusFromError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("userName", "must not be empty"), http.StatusBadRequest},
		{"not found wrapped", fmt.Errorf("get message: %w", ErrNotFound), http.StatusNotFound},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", Persistence("insert message", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"persistence", Persistence("insert message", errors.New("connection refused")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, HTTPStatusFromError(tc.err))
		})
	}
}

func TestPersistenceError(t *testing.T) {
	req := require.New(t)

	err := Persistence("lookup user", context.DeadlineExceeded)
	req.ErrorIs(err, ErrPersistence)
	req.ErrorIs(err, context.DeadlineExceeded)
	req.NotErrorIs(err, ErrNotFound)
	req.Equal(CodePersistenceFailure, CodeFromError(err))
	req.Nil(Persistence("noop", nil))
}

func TestValidationError(t *testing.T) {
	req := require.New(t)

	err := fmt.Errorf("create message: %w", NewValidationError("content", "must not be empty"))
	req.ErrorIs(err, ErrInvalidArgument)
	req.Equal("content", FieldFromError(err))
	req.Equal(CodeInvalidArgument, CodeFromError(err))
	req.Empty(FieldFromError(ErrNotFound))
}

func TestNewAPIError(t *testing.T) {
	t.Run("should carry code and field for validation errors", func(t *testing.T) {
		apiErr := NewAPIError(NewValidationError("content", "must not be empty"))
		require.Equal(t, &APIError{Message: "invalid content: must not be empty", Code: CodeInvalidArgument, Field: "content"}, apiErr)
	})

	t.Run("should hide the cause of persistence failures", func(t *testing.T) {
		apiErr := NewAPIError(Persistence("insert message", errors.New("password authentication failed")))
		require.Equal(t, CodePersistenceFailure, apiErr.Code)
		require.Equal(t, http.StatusText(http.StatusInternalServerError), apiErr.Message)
	})
}
