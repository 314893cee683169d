package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"inventory/internal/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := apperrors.NewNotFound("product", "abc")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.False(t, errors.Is(err, apperrors.ErrMalformedIdentifier))

	wrapped := fmt.Errorf("update quantity: %w", err)
	assert.True(t, errors.Is(wrapped, apperrors.ErrNotFound))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(wrapped))
}

func TestAsWrapsUnknownErrorsAsInternal(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := apperrors.As(cause)
	assert.Equal(t, apperrors.KindInternal, appErr.Kind)
	assert.ErrorIs(t, appErr, cause)
	assert.Nil(t, apperrors.As(nil))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[apperrors.Kind]int{
		apperrors.KindValidation:          http.StatusBadRequest,
		apperrors.KindDuplicateUsername:   http.StatusConflict,
		apperrors.KindInvalidCredentials:  http.StatusBadRequest,
		apperrors.KindUnauthorized:        http.StatusUnauthorized,
		apperrors.KindNotFound:            http.StatusNotFound,
		apperrors.KindMalformedIdentifier: http.StatusBadRequest,
		apperrors.KindInternal:            http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, apperrors.HTTPStatus(kind), string(kind))
	}
}
