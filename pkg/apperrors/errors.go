package apperrors

import "errors"

var (
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrEntityNotFound    = errors.New("entity not found")
	ErrNotARepository    = errors.New("path is not a git repository")
)
