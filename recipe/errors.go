package recipe

import (
	"errors"
	"strings"
)

var (
	// ErrNotConfigured means no generator is available, usually because the
	// API key is missing.
	ErrNotConfigured = errors.New("recipe: generator is not configured")

	// ErrInvalidRequest is matched by every *ValidationError.
	ErrInvalidRequest = errors.New("recipe: invalid request")

	// ErrInvalidRecipe means the decoded payload is not a usable recipe.
	ErrInvalidRecipe = errors.New("recipe: invalid recipe")

	// ErrNilCache is returned by NewService without a cache.
	ErrNilCache = errors.New("recipe: cache is nil")
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a Request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return ErrInvalidRequest.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports a match for ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
