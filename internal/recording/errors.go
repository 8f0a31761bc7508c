package recording

import (
	"errors"
	"fmt"
)

// ErrNoKey is returned when a storage URL carries no object path.
var ErrNoKey = errors.New("storage url has no object key")

// MediaProbeError reports that media properties could not be read.
type MediaProbeError struct {
	Source string
	Err    error
}

func (e *MediaProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Source, e.Err)
}

func (e *MediaProbeError) Unwrap() error {
	return e.Err
}

// ArchiveError reports a failed download, transcode, or upload while
// archiving a recording.
type ArchiveError struct {
	CallID string
	Err    error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive recording for call %s: %v", e.CallID, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
