package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesClonesByCode(t *testing.T) {
	err := fmt.Errorf("handler: %w", Clone(ErrNotFound, "denuncia not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestFromErrorHidesUnknownCauses(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
	assert.Nil(t, FromError(nil))
}

func TestInvalidCarriesFields(t *testing.T) {
	appErr := Invalid(nil, "invalid denuncia payload", map[string]string{"tipo": "required", "descripcion": "min"})
	assert.True(t, errors.Is(appErr, ErrValidation))
	assert.Len(t, appErr.Fields, 2)
	assert.Equal(t, "required", appErr.Fields["tipo"])

	clone := Clone(appErr, "")
	assert.Nil(t, clone.Fields)
}

func TestInternalKeepsContextForLogs(t *testing.T) {
	appErr := Internal(sql.ErrTxDone, "commit transition")
	assert.Equal(t, ErrInternal.Message, appErr.Message)
	assert.Contains(t, appErr.Error(), "commit transition")
}

func TestKindsHaveDistinctCodes(t *testing.T) {
	kinds := []*Error{
		ErrInvalidCredentials, ErrInactiveAccount, ErrUnauthorized, ErrInvalidToken, ErrTokenExpired,
		ErrForbidden, ErrNotFound, ErrConflict, ErrInvalidTransition, ErrValidation,
		ErrPayloadTooLarge, ErrInternal, ErrCacheMiss,
	}
	seen := map[string]bool{}
	for _, kind := range kinds {
		assert.False(t, seen[kind.Code], kind.Code)
		seen[kind.Code] = true
		assert.NotEmpty(t, kind.Message, kind.Code)
		assert.GreaterOrEqual(t, kind.Status, http.StatusBadRequest, kind.Code)
	}
	assert.Equal(t, "account has been deactivated", ErrInactiveAccount.Message)
}
