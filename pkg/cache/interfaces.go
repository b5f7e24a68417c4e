//go:generate mockgen -destination=./mocks/manager.go . Manager

package cache

// Manager defines the interface for cache management operations.
type Manager interface {
	Clean(options CleanOptions) (*CleanResult, error)
	GetInfo() (*Info, error)
	// PackageDir is where packages downloaded from repo are kept.
	PackageDir(repo string) string
}

// CleanOptions specifies what to clean from the cache.
type CleanOptions struct {
	All      bool
	Metadata bool // metadata and solver caches
	Packages bool
}

// CleanResult contains information about what was cleaned.
type CleanResult struct {
	TotalFreed    int64
	MetadataFreed int64
	PackageFreed  int64
}

// Add accumulates other into r.
func (r *CleanResult) Add(other CleanResult) {
	r.MetadataFreed += other.MetadataFreed
	r.PackageFreed += other.PackageFreed
	r.TotalFreed += other.TotalFreed
}

// Info represents cache information.
type Info struct {
	MetadataDir   string
	MetadataSize  int64
	MetadataFiles int
	PackageDir    string
	PackageSize   int64
	PackageFiles  int
	TotalSize     int64
}
