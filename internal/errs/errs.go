package errs

import (
	"errors"
	"fmt"
)

// 业务错误分类，逻辑层统一使用这些哨兵错误，
// handler 层据此映射 HTTP 状态码
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateSubmission = errors.New("video already submitted to this campaign")
	ErrInvalidTransition   = errors.New("illegal status transition")
	ErrConflict            = errors.New("submission was modified concurrently")
	ErrInsufficientBalance = errors.New("treasury balance is insufficient")
	ErrPayoutTransfer      = errors.New("on-chain transfer failed")
	ErrTimeout             = errors.New("on-chain transfer outcome unknown (timeout)")
	ErrUnauthorized        = errors.New("admin authentication failed")
)

// Validation 构造带具体原因的校验错误
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InvalidTransition 构造带状态信息的非法流转错误
func InvalidTransition(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
