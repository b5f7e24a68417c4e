package hooks

import "github.com/glorpus-work/hif/pkg/errors"

// Scriptlet errors.
var (
	ErrHookTypeEmpty = errors.New("scriptlet has no type")
	// ErrHookExecution is a scriptlet that failed to compile or run.
	ErrHookExecution = errors.New("scriptlet failed")
	// ErrHookScript is a scriptlet that set err itself.
	ErrHookScript = errors.New("scriptlet reported an error")
	ErrHookLoad   = errors.New("cannot load scriptlet")
)
