package cache

import (
	"os"
	"path/filepath"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/errors"
)

// DefaultManager implements the Manager interface over the metadata, solver
// cache and package directories.
type DefaultManager struct {
	metadataDir string
	solvDir     string
	packagesDir string
}

// NewManager creates a new cache manager.
func NewManager(metadataDir, solvDir, packagesDir string) *DefaultManager {
	return &DefaultManager{
		metadataDir: metadataDir,
		solvDir:     solvDir,
		packagesDir: packagesDir,
	}
}

// PackageDir returns <packages_dir>/<repo>.
func (cm *DefaultManager) PackageDir(repo string) string {
	return filepath.Join(cm.packagesDir, repo)
}

// Clean removes cached files according to the specified options.
func (cm *DefaultManager) Clean(options CleanOptions) (*CleanResult, error) {
	result := &CleanResult{}

	if !options.Metadata && !options.Packages {
		options.All = true
	}

	if options.All || options.Metadata {
		for _, dir := range []string{cm.metadataDir, cm.solvDir} {
			size, err := cleanDirectory(dir)
			if err != nil {
				return nil, errors.Wrapf(ErrCacheClean, "metadata: %v", err)
			}
			result.MetadataFreed += size
		}
		result.TotalFreed += result.MetadataFreed
	}

	if options.All || options.Packages {
		size, err := cleanDirectory(cm.packagesDir)
		if err != nil {
			return nil, errors.Wrapf(ErrCacheClean, "packages: %v", err)
		}
		result.PackageFreed = size
		result.TotalFreed += size
	}

	logger.Debug("Cache cleaned", logger.Fields{
		"metadata_freed": result.MetadataFreed,
		"package_freed":  result.PackageFreed,
	})
	return result, nil
}

// GetInfo returns information about the cache.
func (cm *DefaultManager) GetInfo() (*Info, error) {
	info := &Info{MetadataDir: cm.metadataDir, PackageDir: cm.packagesDir}

	for _, dir := range []string{cm.metadataDir, cm.solvDir} {
		size, files, err := getDirSizeAndFiles(dir)
		if err != nil {
			return nil, errors.Wrapf(ErrCacheInfo, "metadata: %v", err)
		}
		info.MetadataSize += size
		info.MetadataFiles += files
	}

	size, files, err := getDirSizeAndFiles(cm.packagesDir)
	if err != nil {
		return nil, errors.Wrapf(ErrCacheInfo, "packages: %v", err)
	}
	info.PackageSize = size
	info.PackageFiles = files

	info.TotalSize = info.MetadataSize + info.PackageSize
	return info, nil
}

// cleanDirectory empties dir and returns bytes freed. The directory itself
// is kept.
func cleanDirectory(dir string) (int64, error) {
	if dir == "" {
		return 0, nil
	}
	size, _, err := getDirSizeAndFiles(dir)
	if err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read directory %s", dir)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return 0, errors.Wrapf(err, "failed to remove %s", entry.Name())
		}
	}
	return size, nil
}

// getDirSizeAndFiles calculates directory size and file count. A missing
// directory counts as empty.
func getDirSizeAndFiles(dir string) (size int64, count int, err error) {
	if dir == "" {
		return 0, 0, nil
	}
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		return 0, 0, nil
	}

	err = filepath.Walk(dir, func(_ string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			size += info.Size()
			count++
		}
		return nil
	})
	if err != nil {
		err = errors.Wrapf(err, "error walking directory %s", dir)
	}
	return size, count, err
}

var _ Manager = (*DefaultManager)(nil)
