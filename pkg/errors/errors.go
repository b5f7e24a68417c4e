// Package errors holds the error taxonomy shared by every hif component.
// Callers compare against the sentinels with errors.Is; components wrap them
// with context using Wrap, Wrapf or their own typed errors.
package errors

import (
	"errors"
	"fmt"
)

// Operational error classes surfaced to the user.
var (
	// ErrInvalidArguments is returned for bad command line input.
	ErrInvalidArguments = fmt.Errorf("invalid arguments")
	// ErrNotFound is returned when a requested package matches nothing.
	ErrNotFound = fmt.Errorf("not found")
	// ErrUnsatisfiable is returned when the resolver finds no valid plan.
	ErrUnsatisfiable = fmt.Errorf("unsatisfiable")
	// ErrFetch is returned when remote metadata or packages cannot be fetched.
	ErrFetch = fmt.Errorf("cannot fetch source")
	// ErrLocked is returned when another process holds the cache lock.
	ErrLocked = fmt.Errorf("locked")
	// ErrExecutionFailure is returned when a plan step fails during apply.
	ErrExecutionFailure = fmt.Errorf("transaction step failed")
)

// Infrastructure errors.
var (
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")

	ErrInvalidPath      = fmt.Errorf("invalid path")
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrFileHashMismatch = fmt.Errorf("file hash mismatch")
	ErrValidation       = fmt.Errorf("validation failed")
	ErrMetadataFormat   = fmt.Errorf("unsupported metadata format")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Class returns the name of the operational error class err belongs to,
// or an empty string for errors outside the taxonomy.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArguments):
		return "InvalidArguments"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrUnsatisfiable):
		return "Unsatisfiable"
	case errors.Is(err, ErrFetch):
		return "FetchError"
	case errors.Is(err, ErrLocked):
		return "Locked"
	case errors.Is(err, ErrExecutionFailure):
		return "ExecutionFailure"
	default:
		return ""
	}
}
