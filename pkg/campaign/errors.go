package campaign

import (
	"errors"
	"fmt"
)

// RuleError reports an operation the rules do not allow. Message is written
// as a log line for the player.
type RuleError struct {
	Op      string
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

func reject(op, format string, args ...any) *RuleError {
	return &RuleError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a rules rejection rather than a fault.
func IsRejection(err error) bool {
	var re *RuleError
	return errors.As(err, &re)
}
