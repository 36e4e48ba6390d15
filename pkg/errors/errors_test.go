package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errAlertMissing = New(CodeNotFound, "alert not found")

func TestSentinelMatchesAfterBecause(t *testing.T) {
	cause := stderrors.New("record not found")
	err := errAlertMissing.Because(cause)

	assert.True(t, Is(err, errAlertMissing))
	assert.True(t, Is(err, cause))
	assert.Equal(t, cause, Cause(err))
	assert.Equal(t, "alert not found", GetMessage(err))
	assert.NotEmpty(t, GetStack(err))
}

func TestGetCodeWalksChain(t *testing.T) {
	inner := WithCode(CodeUnsupportedMedia, "unsupported image type")
	outer := fmt.Errorf("upload: %w", inner)

	assert.Equal(t, CodeUnsupportedMedia, GetCode(outer))
	assert.Equal(t, http.StatusUnsupportedMediaType, StatusOf(outer))
	assert.Equal(t, 0, GetCode(stderrors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(stderrors.New("plain")))
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	base := WithCode(CodeValidation, "age out of range")
	ctx := base.WithContext("age", "19")

	assert.Empty(t, base.Context)
	assert.Equal(t, []KeyValue{{Key: "age", Value: "19"}}, ctx.Context)
	assert.Contains(t, fmt.Sprintf("%+v", ctx), "age=19")
}

func TestStatusMapping(t *testing.T) {
	cases := map[int]int{
		CodeValidation:         http.StatusBadRequest,
		CodePhotoRequired:      http.StatusBadRequest,
		CodeVerificationDenied: http.StatusForbidden,
		CodeInvalidTransition:  http.StatusConflict,
		CodeDevice:             http.StatusServiceUnavailable,
		-1:                     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(code), "code %d", code)
	}
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeBackend, "x"))
}
