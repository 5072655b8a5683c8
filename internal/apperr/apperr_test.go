package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("x").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, Conflict("x").HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, Unauthorized("x").HTTPStatus())
	assert.Equal(t, http.StatusForbidden, Forbidden("x").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFound("x").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, Internal("x", nil).HTTPStatus())
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	wrapped := fmt.Errorf("service: %w", NotFound("account not found"))
	got := From(wrapped)
	assert.Equal(t, KindNotFound, got.Kind)
	assert.Equal(t, "account not found", got.Message)

	cause := errors.New("connection reset")
	internal := From(cause)
	assert.Equal(t, KindInternal, internal.Kind)
	assert.Equal(t, "internal server error", internal.Message)
	assert.ErrorIs(t, internal, cause)
}

func TestFromValidator(t *testing.T) {
	type payload struct {
		Email string `validate:"required,email"`
		Rank  int    `validate:"min=1,max=60"`
	}
	err := validator.New().Struct(payload{Email: "bad", Rank: 99})
	require.Error(t, err)

	got := From(err)
	assert.Equal(t, KindValidation, got.Kind)
	require.Len(t, got.Details, 2)
	assert.Equal(t, "Email", got.Details[0].Field)
	assert.Equal(t, "Email must be a valid email address", got.Details[0].Message)
	assert.Equal(t, "Rank must be at most 60", got.Details[1].Message)
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(fmt.Errorf("wrap: %w", Conflict("taken")), KindConflict))
	assert.False(t, IsKind(Conflict("taken"), KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindInternal))
	assert.Equal(t, "not_found", KindNotFound.String())
}
