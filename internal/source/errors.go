package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the source file does not exist.
	ErrNotFound = errors.New("no such file")

	// ErrParse matches every *ParseError through errors.Is.
	ErrParse = errors.New("failed to read source table")
)

// ParseError is returned for any failure reading or parsing an existing
// source file. Line is 0 when the failure is not tied to a row.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("failed to read %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrParse) match any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
