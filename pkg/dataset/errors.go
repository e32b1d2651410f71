package dataset

import (
	"errors"
	"fmt"
)

// Sentinel load failures, wrapped by LoadError.
var (
	ErrMissingColumn = errors.New("missing column")
	ErrInvalidValue  = errors.New("invalid value")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrEmptyTable    = errors.New("table has no data rows")
)

// LoadError describes a failure to read a table. Line and Column are set
// when the failure is tied to a cell.
type LoadError struct {
	Path   string
	Line   int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("load %s: line %d, column %s: %v", e.Path, e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("load %s: line %d: %v", e.Path, e.Line, e.Err)
	default:
		return fmt.Sprintf("load %s: %v", e.Path, e.Err)
	}
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
