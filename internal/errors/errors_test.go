package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR: attendee_count: must be at least 1",
		InvalidInput("attendee_count", "must be at least 1").Error())
	assert.Equal(t, "CONFLICT: cannot approve", Conflict("cannot approve").Error())

	wrapped := Wrap(fmt.Errorf("boom"), ErrCodeInternal, "failed to get invoice")
	assert.Equal(t, "INTERNAL: failed to get invoice: boom", wrapped.Error())
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("approve: %w", Conflict("wrong status"))
	assert.Equal(t, ErrCodeConflict, CodeOf(err))
	assert.True(t, Is(err, ErrCodeConflict))
	assert.False(t, Is(err, ErrCodeForbidden))
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))
	assert.False(t, Is(nil, ErrCodeInternal))
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", OverPayment("too much"))
	assert.True(t, stderrors.Is(err, &Error{Code: ErrCodeOverPayment}))
	assert.False(t, stderrors.Is(err, &Error{Code: ErrCodeNotEligible}))
}

func TestNotFound_Details(t *testing.T) {
	err := NotFound("invoice", "abc")
	require.NotNil(t, err.Details)
	assert.Equal(t, "invoice", err.Details["resource"])
	assert.Equal(t, "abc", err.Details["id"])
}

func TestHTTPStatus(t *testing.T) {
	cases := map[ErrCode]int{
		ErrCodeValidation:        http.StatusBadRequest,
		ErrCodeInvalidAttachment: http.StatusBadRequest,
		ErrCodeUnauthorized:      http.StatusUnauthorized,
		ErrCodeForbidden:         http.StatusForbidden,
		ErrCodeNotFound:          http.StatusNotFound,
		ErrCodeConflict:          http.StatusConflict,
		ErrCodeNotEligible:       http.StatusUnprocessableEntity,
		ErrCodeOverPayment:       http.StatusUnprocessableEntity,
		ErrCodeInternal:          http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), code)
	}
}
