package migration

import (
	"errors"
	"fmt"

	"github.com/okian/sideline/internal/domain/model"
)

// Sentinel errors for season close.
var (
	ErrActiveSuspensions = errors.New("season close blocked by active suspensions")
	ErrCloseInProgress   = errors.New("a season close is already running")
)

// StepError reports the step a season close stopped at. Steps before it
// stay committed.
type StepError struct {
	Step model.MigrationStep
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("season close failed at %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
