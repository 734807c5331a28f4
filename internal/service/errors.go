package service

import "errors"

// Error taxonomy for the search pipeline. Handlers map invalid-argument
// errors to 400 and everything else to 500.
var (
	// ErrEmptyText is returned when embedding input is empty.
	ErrEmptyText = errors.New("text is required and must be non-empty")

	// ErrEmptyQuery is returned when a search query is empty.
	ErrEmptyQuery = errors.New("search query is required")

	// ErrMissingAPIToken is returned when no inference platform credential is configured.
	ErrMissingAPIToken = errors.New("missing inference API token")

	// ErrPollTimeout is returned when prediction polling exhausts its attempts.
	ErrPollTimeout = errors.New("embedding generation timed out")

	// ErrBadEmbeddingShape is returned when the platform output is not a
	// numeric array of the expected dimensionality.
	ErrBadEmbeddingShape = errors.New("invalid embedding shape")
)

// IsInvalidArgument reports whether err stems from bad caller input.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrEmptyText) || errors.Is(err, ErrEmptyQuery)
}
