// Package lock guards the shared cache directories with a process-level
// exclusive lock. Acquisition never waits: a second holder fails fast.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/fsutil"
)

// FileName is the lock file created inside the lock directory.
const FileName = "hif.lock"

// LockedError reports that another process (or another open handle in this
// process) holds the lock.
type LockedError struct {
	Path string
	PID  int // owner recorded in the lock file, 0 when unknown
}

func (e *LockedError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("cache is locked by process %d (%s)", e.PID, e.Path)
	}
	return fmt.Sprintf("cache is locked (%s)", e.Path)
}

// Unwrap makes LockedError match errors.ErrLocked.
func (e *LockedError) Unwrap() error {
	return errors.ErrLocked
}

// Lock is a held lock. Release it exactly once; extra calls are no-ops.
type Lock struct {
	path string
	file *os.File
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock in dir, creating the directory when needed.
func Acquire(dir string) (*Lock, error) {
	if dir == "" {
		return nil, errors.Wrap(errors.ErrInvalidPath, "lock directory cannot be empty")
	}
	if err := os.MkdirAll(dir, fsutil.DirModeDefault); err != nil {
		return nil, errors.Wrapf(err, "failed to create lock directory %s", dir)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, fsutil.FileModeDefault)
	if err != nil {
		return nil, errors.Wrapf(err, "open lock file %s", path)
	}
	if err := tryLock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, errWouldBlock) {
			return nil, &LockedError{Path: path, PID: readOwner(path)}
		}
		return nil, errors.Wrapf(err, "lock %s", path)
	}
	if err := writeOwner(f); err != nil {
		_ = unlock(f)
		_ = f.Close()
		return nil, errors.Wrapf(err, "record lock owner in %s", path)
	}
	return &Lock{path: path, file: f}, nil
}

// Release drops the lock and closes the file. The file itself stays in place.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = l.file.Truncate(0)
	err := unlock(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}

func writeOwner(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return err
	}
	return f.Sync()
}

func readOwner(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
