package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable means the entry URL could not be loaded at all. It is the only fatal error.
	ErrUnreachable = errors.New("entry url unreachable")
	// ErrNoTable means the product table never appeared on the current view.
	ErrNoTable = errors.New("product table not found")
	// ErrPaginationStuck means advancing produced a page that was already extracted.
	ErrPaginationStuck = errors.New("pagination did not advance: page content repeated")
	// ErrMaxPages means the page cap was reached while a next control was still enabled.
	ErrMaxPages = errors.New("pagination stopped at page limit")
)

// StepUnreachableError is returned when a disclosure menu step could not be activated.
type StepUnreachableError struct {
	Index int
	Label string
	Err   error
}

func (e *StepUnreachableError) Error() string {
	return fmt.Sprintf("navigation step %d (%q) unreachable: %v", e.Index, e.Label, e.Err)
}

func (e *StepUnreachableError) Unwrap() error {
	return e.Err
}

// PagingError is returned when the next control could not be activated.
type PagingError struct {
	Page int
	Err  error
}

func (e *PagingError) Error() string {
	return fmt.Sprintf("advance from page %d failed: %v", e.Page, e.Err)
}

func (e *PagingError) Unwrap() error {
	return e.Err
}
