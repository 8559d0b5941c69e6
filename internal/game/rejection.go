package game

import (
	"errors"
	"fmt"
)

// Code - стабильный код отказа, шлюз мапит его на ответ
type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeFailedPrecondition Code = "FAILED_PRECONDITION"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeConflict           Code = "CONFLICT"
	CodeExpired            Code = "EXPIRED"
)

// Rejection - штатный отказ движка, не исключение.
// Конкурентные игроки постоянно гоняются, невалидное действие - нормальный исход.
type Rejection struct {
	Code    Code
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code Code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewRejection для слоев выше движка (контроллер, шлюз)
func NewRejection(code Code, format string, args ...any) *Rejection {
	return reject(code, format, args...)
}

// CodeOf достает код из цепочки ошибок, пусто если это не Rejection
func CodeOf(err error) Code {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return ""
}
