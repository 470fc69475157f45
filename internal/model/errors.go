package model

import (
	"errors"
	"fmt"
)

// Error classes. Callers classify with errors.Is; specific errors wrap one of these.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrScheduling = errors.New("scheduling error")
	ErrStore      = errors.New("store error")
)

var (
	ErrEmptyTitle      = fmt.Errorf("%w: title is required", ErrValidation)
	ErrMissingDueDate  = fmt.Errorf("%w: a task that is not daily needs a due date", ErrValidation)
	ErrInvalidPriority = fmt.Errorf("%w: invalid priority", ErrValidation)
	ErrInvalidDay      = fmt.Errorf("%w: invalid day, expected YYYY-MM-DD", ErrValidation)
	ErrInvalidClock    = fmt.Errorf("%w: invalid time, expected HH:MM", ErrValidation)
	ErrNotInScope      = fmt.Errorf("%w: task is not scheduled for that day", ErrValidation)
)
