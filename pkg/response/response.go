package response

import (
	"net/http"

	apperrors "AmberWatch/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: apperrors.CodeSuccess, Message: msg, Data: data})
}

func Created(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: apperrors.CodeSuccess, Message: msg, Data: data})
}

// Fail 按错误码映射 HTTP 状态输出错误，非 *errors.Error 一律视为 500
func Fail(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	msg := apperrors.GetMessage(err)
	if code == 0 {
		code = apperrors.CodeBackend
		msg = "internal error"
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(code), Response{Code: code, Message: msg})
}

// FailWithCode 直接以错误码和消息失败
func FailWithCode(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(code), Response{Code: code, Message: msg})
}
