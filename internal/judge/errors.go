package judge

import "fmt"

// RelevanceError reports a failed relevance classification.
type RelevanceError struct {
	Err error
}

func (e *RelevanceError) Error() string {
	return fmt.Sprintf("relevance classification: %v", e.Err)
}

func (e *RelevanceError) Unwrap() error {
	return e.Err
}

// ExecutionError reports a failed evaluation request.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("evaluation execution: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
