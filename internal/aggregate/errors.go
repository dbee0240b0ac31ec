package aggregate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrInternal is returned in place of unexpected backend failures. The
// underlying error is logged, not returned.
var ErrInternal = errors.New("internal error")

// UserError is a condition reported to the caller verbatim.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func userErrorf(format string, args ...interface{}) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err is or wraps a UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// classify passes user errors and cancellations through and replaces
// anything else with ErrInternal after logging it.
func classify(logger *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Error("request failed", zap.Error(err))
	return ErrInternal
}
