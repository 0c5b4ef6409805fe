package availability

import (
	"errors"
	"fmt"

	"staysync/internal/domain/shared/daterange"
)

var (
	ErrConflict         = errors.New("availability: range conflicts with an existing interval")
	ErrIntervalNotFound = errors.New("availability: interval not found")
	ErrForbidden        = errors.New("availability: requester is not allowed to modify this interval")
	ErrInvalidState     = errors.New("availability: invalid interval state")
	ErrInvalidStatus    = errors.New("availability: unknown status")
)

// ConflictError carries the interval that blocked a candidate range.
// It matches ErrConflict with errors.Is.
type ConflictError struct {
	Candidate daterange.DateRange
	Existing  Interval
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s overlaps %s %s (%s)", ErrConflict, e.Candidate, e.Existing.Status, e.Existing.ID, e.Existing.Range)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
