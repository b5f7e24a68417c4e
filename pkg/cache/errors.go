package cache

import "github.com/glorpus-work/hif/pkg/errors"

var (
	// ErrCacheClean wraps failures emptying a cache directory.
	ErrCacheClean = errors.New("cannot clean cache")
	// ErrCacheInfo wraps failures measuring a cache directory.
	ErrCacheInfo = errors.New("cannot measure cache")
)
