package calls

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for call operations.
var (
	ErrNotFound  = errors.New("call not found")
	ErrDuplicate = errors.New("call already exists")
	ErrInvalid   = errors.New("invalid call")
)

// PersistenceError reports a failed write of a call record. The write is
// transactional, so no partial state is visible after this error.
type PersistenceError struct {
	CallID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist call %s: %v", e.CallID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MapHTTPStatus maps call domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
