package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionError(t *testing.T) {
	err := TransitionError("confirm", "matched")

	assert.Equal(t, CategoryTransition, err.Category)
	assert.Equal(t, CodeInvalidTransition, err.Code)
	assert.Contains(t, err.Error(), "confirm")
	assert.Contains(t, err.Error(), "matched")
	assert.True(t, IsInvalidTransition(err))
	assert.False(t, IsPersistenceError(err))
}

func TestPersistenceErrorWrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := PersistenceError("createInvoice", cause)

	require.NotNil(t, err)
	assert.Equal(t, CategoryPersistence, err.Category)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsPersistenceError(err))
}

func TestParseErrorNoHeaderRow(t *testing.T) {
	err := ParseError(CodeNoHeaderRow, "scanned 15 rows", nil)

	assert.True(t, IsParseError(err))
	assert.Equal(t, CodeNoHeaderRow, err.Code)
	assert.Contains(t, err.Error(), "header")
	assert.Equal(t, "scanned 15 rows", err.Context["detail"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CategoryFile, CodeFileNotFound, "x"))
	assert.Nil(t, PersistenceError("op", nil))
}

func TestGetExitCodePerCategory(t *testing.T) {
	tests := []struct {
		category Category
		want     int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfig, 4},
		{CategoryTransition, 5},
		{CategoryInternal, 5},
		{CategoryAdvisor, 6},
		{CategoryPersistence, 6},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "test")
		assert.Equal(t, tt.want, err.GetExitCode(), "category %s", tt.category)
	}
}

func TestAsReconErrorThroughWrapping(t *testing.T) {
	inner := TransitionError("ignore", "ignored")
	wrapped := fmt.Errorf("session failed: %w", inner)

	got, ok := AsReconError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTransition, got.Code)
}

func TestWithContextAndSuggestion(t *testing.T) {
	err := New(CategoryAdvisor, CodeAdvisorResponse, "bad payload").
		WithContext("movement_id", "mv-1").
		WithSuggestion("retry")

	assert.Equal(t, "mv-1", err.Context["movement_id"])
	assert.Contains(t, err.Error(), "suggestion: retry")
}
