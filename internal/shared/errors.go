package shared

import "errors"

var (
	// ErrNotFound indicates the referenced record is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the caller supplied invalid input.
	ErrValidation = errors.New("invalid input")
)

// UserSafeMessage returns an error string suitable for API consumers. Known
// domain errors pass through; anything else collapses to a generic message so
// internals never leak into responses.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return "unexpected error, please retry"
	}
}
