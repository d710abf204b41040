package payment

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrSourceUnavailable = errors.New("payment source unavailable")
	ErrInvalidDate       = errors.New("invalid date")
	ErrUnknownType       = errors.New("unknown payment type")
)

// SourceError is returned when a payment source cannot be opened or read.
// It matches ErrSourceUnavailable and unwraps to the underlying failure.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrSourceUnavailable, e.Source, e.Err)
}

func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
