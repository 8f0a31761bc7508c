package workitem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MalformedError reports a queue message that can never be processed:
// undecodable JSON or missing required fields.
type MalformedError struct {
	CallID string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.CallID == "" {
		return fmt.Sprintf("malformed work item: %s", describe(e.Err))
	}
	return fmt.Sprintf("malformed work item %s: %s", e.CallID, describe(e.Err))
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is, or wraps, a MalformedError.
func IsMalformed(err error) bool {
	var m *MalformedError
	return errors.As(err, &m)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}
