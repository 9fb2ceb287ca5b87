package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeskError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("original error")

	// When: wrapping with DeskError
	deskErr := New(ErrCodeCatalogRead, "cannot read catalog: lieferant.csv", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, deskErr)
	assert.Equal(t, originalErr, errors.Unwrap(deskErr))
	assert.True(t, errors.Is(deskErr, originalErr))
}

func TestDeskError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "store error",
			code:     ErrCodeStoreFailed,
			message:  "save failed",
			expected: "[ERR_204_STORE_FAILED] save failed",
		},
		{
			name:     "precondition",
			code:     ErrCodeNotInitialized,
			message:  "search before init",
			expected: "[ERR_507_NOT_INITIALIZED] search before init",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestNew_ClassifiesFromRegistry(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeStoreLocked, CategoryIO, SeverityWarning, true},
		{ErrCodeStoreCorrupt, CategoryIO, SeverityFatal, false},
		{ErrCodePositionOutOfRange, CategoryValidation, SeverityError, false},
		{ErrCodeIndexFailed, CategoryInternal, SeverityWarning, true},
		{ErrCodeNotInitialized, CategoryInternal, SeverityFatal, false},
		{"ERR_999_SOMETHING_NEW", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "x", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestConstructors_UseExpectedCodes(t *testing.T) {
	assert.Equal(t, ErrCodeConfigInvalid, ConfigError("bad", nil).Code)
	assert.Equal(t, ErrCodeInvalidInput, ValidationError("bad", nil).Code)
	assert.Equal(t, ErrCodeInternal, InternalError("bad", nil).Code)
}

func TestWrap(t *testing.T) {
	// Given: a plain error
	cause := errors.New("disk full")

	// When: wrapping it
	err := Wrap(ErrCodeExportWrite, cause)

	// Then: the message is the cause's text and the cause is kept
	assert.Equal(t, "disk full", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(ErrCodeExportWrite, nil))
}

func TestHasCode_SearchesWholeChain(t *testing.T) {
	// Given: a locked-store error wrapped by an internal error and fmt
	inner := New(ErrCodeStoreLocked, "locked", nil)
	outer := InternalError("load failed", inner)
	wrapped := fmt.Errorf("command: %w", outer)

	// Then: both codes are found and GetCode reports the outermost
	assert.True(t, HasCode(wrapped, ErrCodeStoreLocked))
	assert.True(t, HasCode(wrapped, ErrCodeInternal))
	assert.False(t, HasCode(wrapped, ErrCodeStoreCorrupt))
	assert.Equal(t, ErrCodeInternal, GetCode(wrapped))
}

func TestHelpers_PlainErrors(t *testing.T) {
	err := errors.New("plain")

	assert.Equal(t, "", GetCode(err))
	assert.False(t, HasCode(err, ErrCodeInternal))
	assert.False(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
	assert.Equal(t, Category(""), GetCategory(err))
	assert.False(t, HasCode(nil, ErrCodeInternal))
}

func TestHelpers_DeskErrors(t *testing.T) {
	locked := fmt.Errorf("open: %w", New(ErrCodeStoreLocked, "locked", nil))
	corrupt := New(ErrCodeStoreCorrupt, "corrupt", nil)

	assert.True(t, IsRetryable(locked))
	assert.False(t, IsFatal(locked))
	assert.True(t, IsFatal(corrupt))
	assert.Equal(t, CategoryIO, GetCategory(corrupt))
}

func TestAs(t *testing.T) {
	de := ValidationError("bad amount", nil)

	got, ok := As(fmt.Errorf("add: %w", de))

	require.True(t, ok)
	assert.Same(t, de, got)
	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithDetailAndSuggestion_Chain(t *testing.T) {
	err := New(ErrCodeFileNotFound, "catalog missing", nil).
		WithDetail("path", "metro.csv").
		WithDetail("supplier", "Metro").
		WithSuggestion("Check the file name")

	assert.Equal(t, map[string]string{"path": "metro.csv", "supplier": "Metro"}, err.Details)
	assert.Equal(t, "Check the file name", err.Suggestion)
}
