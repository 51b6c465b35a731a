package orders

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrEmptyOrder        = fmt.Errorf("%w: order has no items", ErrValidation)
	ErrOrderNotFound     = errors.New("order not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicateOrder is returned by stores when the external id is taken.
	ErrDuplicateOrder = errors.New("order already exists")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
