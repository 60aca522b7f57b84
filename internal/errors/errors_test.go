package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeSyncConflict, http.StatusConflict},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUnknown, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := Validationf("operation %d: id is required", 3)

	assert.True(t, Is(err, ErrValidation))
	assert.False(t, Is(err, ErrNotFound))

	wrapped := fmt.Errorf("process batch: %w", err)
	assert.True(t, Is(wrapped, ErrValidation))
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := New("disk full")
	err := Wrap(cause, CodeUnknown, "insert item")

	assert.Equal(t, "insert item: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestSyncConflict_CarriesSnapshot(t *testing.T) {
	snapshot := map[string]any{"id": "abc", "version": 4}
	err := SyncConflict("row changed", snapshot)

	assert.Equal(t, CodeSyncConflict, err.Code)
	assert.Equal(t, snapshot, err.Details)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(fmt.Errorf("wrap: %w", NotFound("gone"))))
	assert.Equal(t, CodeUnknown, CodeOf(New("plain")))
}
