package errorutil

import (
	"errors"
	"fmt"
)

// Kind 错误分类
type Kind string

const (
	// KindNotFound 引用的对象不存在（流水线视为无害的空操作）
	KindNotFound Kind = "NOT_FOUND"
	// KindTransient 依赖暂时不可用（store/queue/embedding/index）
	KindTransient Kind = "TRANSIENT"
	// KindMalformed 输入无法解析（队列消息格式错误）
	KindMalformed Kind = "MALFORMED"
	// KindInternal 其它错误
	KindInternal Kind = "INTERNAL"
)

// Error 错误结构（包含可重试标记）
type Error struct {
	Code       int    `json:"code"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`
	cause      error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.cause
}

// Retriable 创建可重试错误（网络错误、临时故障等）
func Retriable(message string) *Error {
	return &Error{
		Code:      500,
		Kind:      KindTransient,
		Message:   message,
		Retryable: true,
	}
}

// RetriableWithDetails 创建可重试错误（带详细信息）
func RetriableWithDetails(message string, details string) *Error {
	e := Retriable(message)
	e.DevDetails = details
	return e
}

// NonRetriable 创建不可重试错误（参数错误、业务规则错误等）
func NonRetriable(message string) *Error {
	return &Error{
		Code:      400,
		Kind:      KindInternal,
		Message:   message,
		Retryable: false,
	}
}

// NonRetriableWithDetails 创建不可重试错误（带详细信息）
func NonRetriableWithDetails(message string, details string) *Error {
	e := NonRetriable(message)
	e.DevDetails = details
	return e
}

// NotFound 对象不存在
func NotFound(message string) *Error {
	return &Error{
		Code:      404,
		Kind:      KindNotFound,
		Message:   message,
		Retryable: false,
	}
}

// Transient 包装依赖的临时故障，保留原始错误链
func Transient(message string, cause error) *Error {
	return &Error{
		Code:      503,
		Kind:      KindTransient,
		Message:   message,
		Retryable: true,
		cause:     cause,
	}
}

// Malformed 输入格式错误
func Malformed(message string, cause error) *Error {
	return &Error{
		Code:      400,
		Kind:      KindMalformed,
		Message:   message,
		Retryable: false,
		cause:     cause,
	}
}

// Wrap 包装错误（自动判断是否可重试）
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// 默认为不可重试错误
	return &Error{
		Code:       500,
		Kind:       KindInternal,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
	}
}

// UnWrapResponse 解包错误（用于 Response）
func UnWrapResponse(err error) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err)
}

// KindOf 返回错误链上第一个 *Error 的分类
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable 错误链上是否存在可重试错误
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsNotFound 是否为 NotFound
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
