package search

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTitle is returned when a start or goal title is empty.
	ErrEmptyTitle = errors.New("search: empty title")
	// ErrTitleNotFound is returned by Canonicalize when no form of a title
	// exists in the table.
	ErrTitleNotFound = errors.New("search: title not found")
	// ErrStore matches every *StoreError.
	ErrStore = errors.New("search: store failure")
	// ErrInvalidOption is returned for out-of-range option values.
	ErrInvalidOption = errors.New("search: invalid option")
)

// StoreError reports a lookup failure in the backing table. It aborts the
// search it occurred in.
type StoreError struct {
	Title string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("search: lookup %q: %v", e.Title, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStore) true for any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }
