package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Error represents a coded error with stack trace
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"` // 原始错误，不序列化
	Stack   string     `json:"stack,omitempty"`
	Context []KeyValue `json:"context,omitempty"`
}

// KeyValue represents a key-value pair for context
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同码且同消息的 *Error 视为同一类错误，便于对哨兵错误使用 errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCode creates a new error with code
func WithCode(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(),
	}
}

// WithCodef creates a new error with code and formatted message
func WithCodef(code int, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(),
	}
}

// Wrap wraps an error with code and message
func Wrap(err error, code int, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// Wrapf wraps an error with code and formatted message
func Wrapf(err error, code int, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
		Stack:   captureStack(),
	}
}

// New creates a sentinel error; no stack is captured for package-level values
func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Because returns a copy of a sentinel carrying the underlying cause
func (e *Error) Because(err error) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
		Stack:   captureStack(),
		Context: append([]KeyValue(nil), e.Context...),
	}
}

// WithContext adds context to an error
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}

	// 创建新的错误实例以避免修改原始错误
	newErr := &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Stack:   e.Stack,
		Context: make([]KeyValue, len(e.Context), len(e.Context)+1),
	}
	copy(newErr.Context, e.Context)
	newErr.Context = append(newErr.Context, KeyValue{Key: key, Value: value})
	if newErr.Stack == "" {
		newErr.Stack = captureStack()
	}
	return newErr
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// 去掉 goroutine 头以及 captureStack 和构造函数自身的帧
	lines := strings.Split(stack, "\n")
	if len(lines) > 5 {
		stack = strings.Join(lines[5:], "\n")
	}
	return strings.TrimSpace(stack)
}

// GetCode returns the first code found in the error chain
func GetCode(err error) int {
	var e *Error
	for err != nil {
		if stderrors.As(err, &e) {
			if e.Code != 0 {
				return e.Code
			}
			err = e.Err
			continue
		}
		break
	}
	return 0
}

// GetMessage returns the error message
func GetMessage(err error) string {
	var e *Error
	if stderrors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// GetStack returns the error stack trace
func GetStack(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Stack
	}
	return ""
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Cause returns the innermost error
func Cause(err error) error {
	for err != nil {
		next := stderrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return err
}

// Format implements fmt.Formatter
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			for _, kv := range e.Context {
				fmt.Fprintf(s, " %s=%s", kv.Key, kv.Value)
			}
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
