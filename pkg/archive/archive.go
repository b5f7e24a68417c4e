// Package archive opens package files: compressed archives carrying
// meta/package.json, meta/hooks and a data/ tree, and rpm files whose cpio
// payload is the data tree.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/mholt/archives"

	"github.com/glorpus-work/hif/pkg/fsutil"
	"github.com/glorpus-work/hif/pkg/hooks"
)

// Contents is an extracted package.
type Contents struct {
	Format   Format
	Manifest *Manifest
	// Root is the staging tree mirroring the install root.
	Root string
	// Files lists the installed paths, slash separated with a leading slash, sorted.
	Files []string
	Hooks hooks.Set
}

// Manager handles package extraction and archive creation.
type Manager struct{}

// NewManager creates a new Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// ReadManifest returns the identity of the package at pkgPath without
// extracting its payload.
func (am *Manager) ReadManifest(ctx context.Context, pkgPath string) (*Manifest, error) {
	format, err := Detect(pkgPath)
	if err != nil {
		return nil, err
	}
	if format == FormatRPM {
		rpm, f, err := openRPM(pkgPath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return rpmManifest(rpm)
	}

	fsys, err := archives.FileSystem(ctx, pkgPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	mf, err := fsys.Open(ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("package %s has no %s: %w", pkgPath, ManifestPath, err)
	}
	defer func() { _ = mf.Close() }()
	return decodeManifest(mf)
}

// Extract unpacks the package at pkgPath below stagingDir.
func (am *Manager) Extract(ctx context.Context, pkgPath, stagingDir string) (*Contents, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, err := Detect(pkgPath)
	if err != nil {
		return nil, err
	}

	c := &Contents{Format: format, Root: filepath.Join(stagingDir, DataDir)}
	switch format {
	case FormatRPM:
		rpm, f, err := openRPM(pkgPath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		if c.Manifest, err = rpmManifest(rpm); err != nil {
			return nil, err
		}
		if err := fsutil.EnsureDir(c.Root); err != nil {
			return nil, err
		}
		if err := rpm.ExpandPayload(c.Root); err != nil {
			return nil, fmt.Errorf("failed to expand rpm payload of %s: %w", pkgPath, err)
		}
		c.Hooks = hooks.Set{}
	default:
		if err := am.ExtractAll(ctx, pkgPath, stagingDir); err != nil {
			return nil, err
		}
		mf, err := os.Open(filepath.Join(stagingDir, filepath.FromSlash(ManifestPath)))
		if err != nil {
			return nil, fmt.Errorf("package %s has no %s: %w", pkgPath, ManifestPath, err)
		}
		c.Manifest, err = decodeManifest(mf)
		_ = mf.Close()
		if err != nil {
			return nil, err
		}
		if c.Hooks, err = hooks.LoadDir(filepath.Join(stagingDir, filepath.FromSlash(HooksDir))); err != nil {
			return nil, err
		}
		if err := fsutil.EnsureDir(c.Root); err != nil {
			return nil, err
		}
	}

	if c.Files, err = listFiles(c.Root); err != nil {
		return nil, err
	}
	return c, nil
}

// listFiles returns every non-directory below root as an install path.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, "/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list package files: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

// ExtractAll extracts all files from an archive to the specified destination directory
func (am *Manager) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := os.MkdirAll(destDir, fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return am.extractEntry(fsys, path, destDir, d)
	})
}

// Create writes sourceDir as a gzip compressed tarball. It is how package
// fixtures and locally built packages are produced.
func (am *Manager) Create(ctx context.Context, sourceDir, archivePath string) error {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}

	archiveFiles, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	if err := fsutil.EnsureFileDir(archivePath); err != nil {
		return err
	}
	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, file, archiveFiles); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}

// Build lays out manifest, scripts and data files in a temporary tree and
// archives it to archivePath. Data keys are install paths.
func (am *Manager) Build(ctx context.Context, m *Manifest, data map[string]string, scripts hooks.Set, archivePath string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	tree, err := os.MkdirTemp("", "hif-build-*")
	if err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tree) }()

	manifestPath := filepath.Join(tree, filepath.FromSlash(ManifestPath))
	if err := fsutil.EnsureFileDir(manifestPath); err != nil {
		return err
	}
	mf, err := os.Create(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	err = writeManifest(mf, m)
	_ = mf.Close()
	if err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	for t, body := range scripts {
		p := filepath.Join(tree, filepath.FromSlash(HooksDir), string(t)+hooks.FileExtension)
		if err := writeFile(p, body, fsutil.FileModeDefault); err != nil {
			return err
		}
	}
	if err := fsutil.EnsureDir(filepath.Join(tree, DataDir)); err != nil {
		return err
	}
	for name, body := range data {
		p := filepath.Join(tree, DataDir, filepath.FromSlash(name))
		if err := writeFile(p, body, fsutil.FileModeDefault); err != nil {
			return err
		}
	}
	return am.Create(ctx, tree, archivePath)
}

func writeFile(path, body string, perm os.FileMode) error {
	if err := fsutil.EnsureFileDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(body), perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// extractEntry processes a single archive entry and writes it to destDir.
func (am *Manager) extractEntry(fsys fs.FS, path, destDir string, d fs.DirEntry) error {
	if path == "." {
		return nil
	}

	targetPath := filepath.Join(destDir, filepath.FromSlash(path))

	if d.IsDir() {
		return os.MkdirAll(targetPath, fsutil.DirModeDefault)
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return am.writeSymlink(fsys, path, targetPath)
	}

	return am.writeRegularFile(fsys, path, targetPath, info)
}

// writeSymlink creates a symlink at targetPath with contents from the archive entry at path.
func (am *Manager) writeSymlink(fsys fs.FS, path, targetPath string) error {
	linkTarget, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read symlink %s: %w", path, err)
	}
	defer func() { _ = linkTarget.Close() }()

	targetBytes, err := io.ReadAll(linkTarget)
	if err != nil {
		return fmt.Errorf("failed to read symlink target %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create parent directory for symlink %s: %w", path, err)
	}

	_ = os.Remove(targetPath)

	return os.Symlink(string(targetBytes), targetPath)
}

// writeRegularFile writes a regular file from the archive entry to targetPath and preserves metadata.
func (am *Manager) writeRegularFile(fsys fs.FS, path, targetPath string, info fs.FileInfo) error {
	srcFile, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer func() { _ = srcFile.Close() }()

	if err := os.MkdirAll(filepath.Dir(targetPath), fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	dstFile, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", targetPath, err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file %s: %w", path, err)
	}

	if err := os.Chmod(targetPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", targetPath, err)
	}
	if err := os.Chtimes(targetPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time for %s: %w", targetPath, err)
	}
	return nil
}
