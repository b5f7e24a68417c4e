// Package fsutil holds the small filesystem helpers shared by the cache,
// repository and transaction layers.
package fsutil

// Permission bits used for everything hif writes.
const (
	FileModeDefault = 0o644 // -rw-r--r--
	FileModeExec    = 0o755 // -rwxr-xr-x

	DirModeDefault = 0o755 // drwxr-xr-x
	DirModePrivate = 0o700 // drwx------
)
