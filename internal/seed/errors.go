package seed

import "errors"

// ErrInvalidFixture reports a fixture that cannot be applied.
var ErrInvalidFixture = errors.New("invalid fixture")
