package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewValidationError("input directory is empty"),
			expected: "[VALIDATION] input directory is empty",
		},
		{
			name:     "with cause",
			err:      NewStorageError("failed to create output", fs.ErrPermission),
			expected: "[STORAGE] failed to create output: permission denied",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("input directory xml", nil),
			expected: "[NOT_FOUND] input directory xml not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := NewNotFoundError("input directory", fs.ErrNotExist)
	wrapped := fmt.Errorf("run batch: %w", err)

	assert.True(t, errors.Is(wrapped, fs.ErrNotExist))

	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrTypeNotFound, appErr.Type)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewParsingError("bad document", nil).
		WithContext("file", "b.xml").
		WithContext("line", 3)

	assert.Equal(t, "b.xml", err.Context["file"])
	assert.Equal(t, 3, err.Context["line"])

	// nil map is initialised lazily
	bare := &AppError{Type: ErrTypeConfig}
	bare.WithContext("key", "value")
	assert.Equal(t, "value", bare.Context["key"])
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewConfigError("bad flag", nil))

	assert.True(t, IsType(err, ErrTypeConfig))
	assert.False(t, IsType(err, ErrTypeStorage))
	assert.False(t, IsType(errors.New("plain"), ErrTypeConfig))
	assert.False(t, IsType(nil, ErrTypeConfig))
}
