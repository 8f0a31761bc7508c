package evaluations

import "errors"

// Domain errors for evaluation catalogue operations.
var (
	ErrNotFound  = errors.New("evaluation resource not found")
	ErrDuplicate = errors.New("evaluation resource already exists")
	ErrInvalid   = errors.New("invalid evaluation resource")
)
