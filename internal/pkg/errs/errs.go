package errs

import (
	"fmt"
	"net/http"
	"strings"

	"livechat/internal/pkg/logx"
)

// CustomError carries an application code, a user-facing message and the HTTP
// status used when the error ends an HTTP request.
type CustomError struct {
	Code    int
	Message string
	Status  int
}

func (e CustomError) Error() string {
	return fmt.Sprintf("error code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError builds a *CustomError for a registered code. details fill the printf
// verbs of the message template; for ErrUnknown a leading error detail is logged
// instead. Unregistered codes resolve to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Error(fmt.Errorf("unregistered error code %d", code), "errs: unknown code requested")
		tmpl = errorMap[ErrUnknown]
	}

	customErr := tmpl
	if customErr.Status == 0 {
		customErr.Status = http.StatusBadRequest
	}

	switch {
	case len(details) == 0:
	case customErr.Code == ErrUnknown:
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "errs: unknown error with cause")
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("errs: details ignored, message has no placeholders", "code", code)
	}

	return &customErr
}
