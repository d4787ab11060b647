package embeddings

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPayloadTooLarge is returned when the backend rejects the input size
	// even after truncation.
	ErrPayloadTooLarge = errors.New("embedding payload too large")

	// ErrAuth is returned when the backend refuses the credentials, after the
	// single token refresh when the backend supports one.
	ErrAuth = errors.New("embedding authorization failed")

	// ErrTransport is returned for any other failure talking to the backend:
	// connection errors, timeouts, unexpected statuses and malformed bodies.
	ErrTransport = errors.New("embedding transport failure")

	// ErrEmptyInput is returned when the text carries nothing to embed.
	ErrEmptyInput = errors.New("embedding input has no content")
)

// StatusError maps a non-2xx backend response onto the embedding error taxonomy.
func StatusError(provider string, status int, body []byte) error {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s returned status %d: %s", ErrAuth, provider, status, body)
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %s returned status %d: %s", ErrPayloadTooLarge, provider, status, body)
	default:
		return fmt.Errorf("%w: %s returned status %d: %s", ErrTransport, provider, status, body)
	}
}
