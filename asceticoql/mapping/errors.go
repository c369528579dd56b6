package mapping

import "errors"

var (
	ErrUnknownClass      = errors.New("mapping: unknown class")
	ErrUnknownField      = errors.New("mapping: unknown field")
	ErrUnknownTable      = errors.New("mapping: unknown table")
	ErrUnknownColumn     = errors.New("mapping: unknown column")
	ErrInvalidForeignKey = errors.New("mapping: invalid foreign key")
	ErrInvalidMapping    = errors.New("mapping: invalid mapping")
)
