package transaction

import (
	"fmt"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/model"
)

// Phase is the part of a step that failed.
type Phase string

// Step phases in execution order.
const (
	PhaseDownload Phase = "download"
	PhaseVerify   Phase = "verify"
	PhaseApply    Phase = "apply"
)

// StepError reports the plan step that aborted a run. Steps before Index
// stay applied.
type StepError struct {
	Index  int
	Action model.Action
	Phase  Phase
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s %s) failed during %s: %v",
		e.Index+1, e.Action.Kind, e.Action.Package.NEVRA(), e.Phase, e.Err)
}

// Unwrap matches errors.ErrExecutionFailure and the underlying cause.
func (e *StepError) Unwrap() []error {
	return []error{errors.ErrExecutionFailure, e.Err}
}

// ErrIdentityMismatch is returned when a downloaded package is not the
// planned build.
var ErrIdentityMismatch = errors.Wrap(errors.ErrValidation, "package identity mismatch")
