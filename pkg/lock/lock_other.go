//go:build !unix

package lock

import (
	"errors"
	"os"
	"sync"
)

var errWouldBlock = errors.New("lock held elsewhere")

// Platforms without flock fall back to an in-process table keyed by path.
// This only serializes invocations within one process.
var (
	heldMu sync.Mutex
	held   = map[string]bool{}
)

func tryLock(f *os.File) error {
	heldMu.Lock()
	defer heldMu.Unlock()
	if held[f.Name()] {
		return errWouldBlock
	}
	held[f.Name()] = true
	return nil
}

func unlock(f *os.File) error {
	heldMu.Lock()
	defer heldMu.Unlock()
	delete(held, f.Name())
	return nil
}
