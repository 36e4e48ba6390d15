package errors

import "net/http"

const CodeSuccess = 0

// 通用错误码
const (
	CodeValidation int = iota + 100001
	CodeUnauthorized
	CodeForbidden
	CodeNotFound
	CodeConflict
	CodeUnsupportedMedia
	CodeTooLarge
	CodeTooManyRequests
	CodeBackend
	CodeDevice
)

// 业务错误码
const (
	CodeVerificationDenied int = iota + 200001
	CodePhotoRequired
	CodeInvalidTransition
	CodeBadCredentials
	CodeSessionInvalid
)

var statusByCode = map[int]int{
	CodeSuccess:            http.StatusOK,
	CodeValidation:         http.StatusBadRequest,
	CodePhotoRequired:      http.StatusBadRequest,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeBadCredentials:     http.StatusUnauthorized,
	CodeSessionInvalid:     http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeVerificationDenied: http.StatusForbidden,
	CodeNotFound:           http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeInvalidTransition:  http.StatusConflict,
	CodeUnsupportedMedia:   http.StatusUnsupportedMediaType,
	CodeTooLarge:           http.StatusRequestEntityTooLarge,
	CodeTooManyRequests:    http.StatusTooManyRequests,
	CodeBackend:            http.StatusInternalServerError,
	CodeDevice:             http.StatusServiceUnavailable,
}

// HTTPStatus 错误码对应的 HTTP 状态，未知错误码按 500 处理
func HTTPStatus(code int) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// StatusOf 取错误链上的错误码并映射为 HTTP 状态
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return HTTPStatus(GetCode(err))
}
