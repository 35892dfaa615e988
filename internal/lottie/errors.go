// internal/lottie/errors.go
package lottie

import "errors"

var (
	// ErrInvalidColorFormat is returned by the codec for strings that are not #RRGGBB.
	// Replacement operations treat it as a no-op rather than a failure.
	ErrInvalidColorFormat = errors.New("invalid color format: expected #RRGGBB")
	// ErrMalformedDocument means the document root is not an object or array,
	// or the JSON text could not be decoded.
	ErrMalformedDocument = errors.New("malformed animation document")
	// ErrRecursionLimit means the document nests deeper than the configured limit.
	ErrRecursionLimit = errors.New("document exceeds maximum nesting depth")
)
