package errors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Transport("fetch", nil))
	assert.NoError(t, Filesystem("append", nil))
}

func TestTypeOfThroughWrapping(t *testing.T) {
	base := Filesystem("append text", os.ErrPermission)
	wrapped := fmt.Errorf("post 42: %w", base)

	assert.Equal(t, ErrorTypeFilesystem, TypeOf(wrapped))
	assert.True(t, Is(wrapped, ErrorTypeFilesystem))
	assert.False(t, Is(wrapped, ErrorTypeTransport))
	assert.True(t, errors.Is(wrapped, os.ErrPermission))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Type: ErrorTypeServerError, Op: "GET /APP/Responses/get", Message: "server error", Code: 502}
	assert.Equal(t, "GET /APP/Responses/get: server_error error (code 502): server error", err.Error())

	noOp := &Error{Type: ErrorTypeTransport, Err: errors.New("connection reset")}
	assert.Equal(t, "transport error (code 0): connection reset", noOp.Error())
}

func TestRetryability(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeTransport))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeValidation))
	assert.False(t, IsRetryable(ErrorTypeFilesystem))

	assert.True(t, IsRetryableStatusCode(503))
	assert.True(t, IsRetryableStatusCode(429))
	assert.False(t, IsRetryableStatusCode(404))

	assert.Equal(t, ErrorTypeAuth, FromStatus(401))
	assert.Equal(t, ErrorTypeNotFound, FromStatus(404))
	assert.Equal(t, ErrorTypeRateLimit, FromStatus(429))
	assert.Equal(t, ErrorTypeServerError, FromStatus(500))
}
