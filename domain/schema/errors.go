package schema

import "errors"

// ErrInvalidOutput indicates a model output that parsed as JSON but does
// not satisfy the declared contract.
var ErrInvalidOutput = errors.New("invalid structured output")
