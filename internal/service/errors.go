package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luckysymb/telegram-bot-payment/internal/payment"
	"github.com/luckysymb/telegram-bot-payment/pkg/logger"
)

type ErrorCode string

const (
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeUnspecified        ErrorCode = "UNSPECIFIED"
	ErrorCodeInvalidBody        ErrorCode = "INVALID_BODY"
	ErrorCodeInvalidArgument    ErrorCode = "INVALID_ARGUMENT"
	ErrorCodeSourceUnavailable  ErrorCode = "SOURCE_UNAVAILABLE"
	ErrorCodeMembersUnavailable ErrorCode = "MEMBERS_UNAVAILABLE"
	ErrorCodeRemovalFailed      ErrorCode = "REMOVAL_FAILED"
	ErrorCodeEmailDisabled      ErrorCode = "EMAIL_DISABLED"
	ErrorCodeEmailFailed        ErrorCode = "EMAIL_FAILED"
	ErrorCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden          ErrorCode = "FORBIDDEN"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}

// loadError maps a payment loader failure to a service error.
func loadError(ctx context.Context, err error) *Error {
	l := logger.FromContext(ctx)
	if errors.Is(err, payment.ErrSourceUnavailable) {
		l.Error("payment source unavailable", zap.Error(err))
		return NewError(ErrorCodeSourceUnavailable, "payment source unavailable")
	}
	l.Error("failed to load payments", zap.Error(err))
	return NewError(ErrorCodeUnspecified, "failed to load payments")
}
