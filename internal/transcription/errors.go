package transcription

import "fmt"

// ServiceError reports a failed or timed-out transcription request.
// StatusCode is zero when no response was received.
type ServiceError struct {
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transcription service (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transcription service: %v", e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
