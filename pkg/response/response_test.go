package response

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "AmberWatch/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h(c)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestFailMapsCode(t *testing.T) {
	w, body := run(t, func(c *gin.Context) {
		Fail(c, apperrors.WithCode(apperrors.CodePhotoRequired, "photo evidence is required"))
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodePhotoRequired, body.Code)
	assert.Equal(t, "photo evidence is required", body.Message)
}

func TestFailHidesUncodedErrors(t *testing.T) {
	w, body := run(t, func(c *gin.Context) {
		Fail(c, stderrors.New("dial tcp 10.0.0.1:5432: refused"))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", body.Message)
}

func TestSuccessEnvelope(t *testing.T) {
	w, body := run(t, func(c *gin.Context) { Success(c, "ok", gin.H{"n": 1}) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, apperrors.CodeSuccess, body.Code)
	assert.Equal(t, map[string]interface{}{"n": float64(1)}, body.Data)
}
