package season

import "errors"

// ErrInvalidLabel is returned for labels not shaped like "2025-Fall".
var ErrInvalidLabel = errors.New("invalid season label")
