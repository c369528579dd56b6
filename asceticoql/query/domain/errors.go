package query

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnknownAlias   = errors.New("query: unknown alias")
	ErrUnknownField   = errors.New("query: unknown field")
	ErrUnknownClass   = errors.New("query: unknown class")
	ErrMissingParam   = errors.New("query: missing parameter")
	ErrStateMismatch  = errors.New("query: expression state used outside its pass")
	ErrCollectionUsed = errors.New("query: collection value where a scalar is required")
)

// UnsupportedError reports a rendering the dialect has no SQL for.
type UnsupportedError struct {
	Capability string
	Dialect    string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by the %s dialect", e.Capability, e.Dialect)
}

// UserError reports an invalid query.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// InvariantError reports a defect in the compiler itself.
type InvariantError struct {
	Message string
	Err     error
}

func (e *InvariantError) Error() string {
	if e.Err != nil {
		return "invariant violated: " + e.Message + ": " + e.Err.Error()
	}
	return "invariant violated: " + e.Message
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

func Unsupported(capability, dialect string) error {
	return errors.WithStack(&UnsupportedError{Capability: capability, Dialect: dialect})
}

func UserErrorf(format string, args ...any) error {
	return errors.WithStack(&UserError{Message: fmt.Sprintf(format, args...)})
}

// WrapUser turns err into a UserError keeping err in the chain.
func WrapUser(err error, message string) error {
	return errors.WithStack(&UserError{Message: message, Err: err})
}

func Invariantf(err error, format string, args ...any) error {
	return errors.WithStack(&InvariantError{Message: fmt.Sprintf(format, args...), Err: err})
}

func IsUnsupported(err error) bool {
	var target *UnsupportedError
	return errors.As(err, &target)
}

func IsUserError(err error) bool {
	var target *UserError
	return errors.As(err, &target)
}

func IsInvariant(err error) bool {
	var target *InvariantError
	return errors.As(err, &target)
}
