package agents

import "errors"

// ErrInvalid is returned when an upsert lacks the owner or customer agent id.
var ErrInvalid = errors.New("owner id and customer agent id are required")
