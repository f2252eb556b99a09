// internal/equipment/errors.go
package equipment

import "errors"

// Registry and listener state errors, surfaced to the API layer as
// client-side failures
var (
	ErrAlreadyConnected     = errors.New("equipment already connected")
	ErrNotConnected         = errors.New("equipment not connected")
	ErrAlreadyListening     = errors.New("equipment already listening")
	ErrUnsupportedOperation = errors.New("operation not supported for this equipment")
)
