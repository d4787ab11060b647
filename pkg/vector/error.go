package vector

import "errors"

var (
	// ErrNotFound is returned when a document is not found in the vector store.
	ErrNotFound = errors.New("document not found")

	// ErrIndexUnavailable is returned when the vector store cannot be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch is returned when an embedding does not have the
	// index's fixed dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
