// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tymenu/tymenu/pkg/errors"
)

// RequireAppError asserts that err is an AppError with code and returns it.
func RequireAppError(t *testing.T, err error, code errors.ErrorCode, msgAndArgs ...interface{}) *errors.AppError {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected an AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, msgAndArgs...)
	return appErr
}

// AssertStatus asserts the HTTP status an error maps to.
func AssertStatus(t *testing.T, err error, status int) {
	t.Helper()
	assert.Equal(t, status, errors.StatusCode(err), "error: %v", err)
}
