package callflow

import "errors"

var (
	// ErrMalformedEvent means the webhook payload could not be interpreted.
	// The caller should still end the call gracefully.
	ErrMalformedEvent = errors.New("malformed webhook event")
	// ErrInvalidRequest means an initiation request failed validation.
	ErrInvalidRequest = errors.New("invalid request")
)
