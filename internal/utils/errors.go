package utils

import (
	"errors"
	"fmt"
)

// AppError tags a failure with the operation and output table it occurred in.
type AppError struct {
	Op    string
	Table string
	Err   error
}

func (e *AppError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError. A nil err yields nil so call sites can wrap unconditionally.
func NewAppError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Op: op, Table: table, Err: err}
}

// TableOf returns the table recorded on the first AppError in err's chain.
func TableOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Table
	}
	return ""
}
