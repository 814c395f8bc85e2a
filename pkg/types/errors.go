package types

import "errors"

// Domain errors for type validation
var (
	ErrUnknownKind  = errors.New("unknown content kind")
	ErrNilItem      = errors.New("content item is nil")
	ErrMissingID    = errors.New("content item id is required")
	ErrMissingTitle = errors.New("content item title is required")
)
