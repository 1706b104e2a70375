package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesOriginalCode(t *testing.T) {
	err := Clone(ErrInvalidTransition, "mapping is not pending")
	assert.Equal(t, "mapping is not pending", err.Message)
	assert.True(t, stdErrors.Is(err, ErrInvalidTransition))
	assert.False(t, stdErrors.Is(err, ErrForbidden))
}

func TestWrappedErrorIsMatchesThroughFmt(t *testing.T) {
	err := fmt.Errorf("approve: %w", Clone(ErrForbidden, "student cannot approve"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	base := stdErrors.New("boom")
	appErr := FromError(base)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, base)
	assert.Nil(t, FromError(nil))
}
