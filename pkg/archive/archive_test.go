package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/evr"
	"github.com/glorpus-work/hif/pkg/hooks"
	"github.com/glorpus-work/hif/pkg/model"
)

func TestArchiveManager_ExtractAll(t *testing.T) {
	tempDir := t.TempDir()

	testFiles := map[string]string{
		"meta/package.json":     `{"name":"test","version":"1.0","arch":"noarch"}`,
		"data/file1.txt":        "Hello World",
		"data/subdir/file2.txt": "Hello World 2",
	}

	sourceDir := filepath.Join(tempDir, "source")
	for path, content := range testFiles {
		fullPath := filepath.Join(sourceDir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}

	am := NewManager()
	ctx := context.Background()
	archivePath := filepath.Join(tempDir, "test.tar.gz")
	require.NoError(t, am.Create(ctx, sourceDir, archivePath))

	extractDir := filepath.Join(tempDir, "extracted")
	require.NoError(t, am.ExtractAll(ctx, archivePath, extractDir))

	for path, expectedContent := range testFiles {
		content, err := os.ReadFile(filepath.Join(extractDir, path))
		if assert.NoError(t, err, "file %s was not extracted", path) {
			assert.Equal(t, expectedContent, string(content))
		}
	}
}

func TestArchiveManager_BuildAndExtract(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()
	am := NewManager()

	manifest := &Manifest{Name: "foo", Epoch: 1, Version: "2.0", Release: "3", Arch: "x86_64", Summary: "Foo"}
	pkgPath := filepath.Join(tempDir, "out", "foo.tar.gz")
	require.NoError(t, am.Build(ctx, manifest, map[string]string{
		"/usr/bin/foo":         "#!/bin/sh\n",
		"/usr/share/foo/README": "readme",
	}, hooks.Set{hooks.PostInstall: `x := 1`}, pkgPath))

	got, err := am.ReadManifest(ctx, pkgPath)
	require.NoError(t, err)
	assert.Equal(t, manifest, got)
	assert.Equal(t, "foo-1:2.0-3.x86_64", got.NEVRA())

	c, err := am.Extract(ctx, pkgPath, filepath.Join(tempDir, "staging"))
	require.NoError(t, err)
	assert.Equal(t, FormatArchive, c.Format)
	assert.Equal(t, manifest, c.Manifest)
	assert.Equal(t, []string{"/usr/bin/foo", "/usr/share/foo/README"}, c.Files)
	assert.Equal(t, hooks.Set{hooks.PostInstall: `x := 1`}, c.Hooks)

	data, err := os.ReadFile(filepath.Join(c.Root, "usr", "share", "foo", "README"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(data))
}

func TestArchiveManager_ExtractEmptyData(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()
	am := NewManager()

	pkgPath := filepath.Join(tempDir, "meta-only.tar.gz")
	require.NoError(t, am.Build(ctx, &Manifest{Name: "meta", Version: "1", Arch: "noarch"}, nil, nil, pkgPath))

	c, err := am.Extract(ctx, pkgPath, filepath.Join(tempDir, "staging"))
	require.NoError(t, err)
	assert.Empty(t, c.Files)
	assert.Empty(t, c.Hooks)
	assert.DirExists(t, c.Root)
}

func TestArchiveManager_MissingManifest(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()
	am := NewManager()

	sourceDir := filepath.Join(tempDir, "source")
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "data", "x"), []byte("x"), 0o644))
	pkgPath := filepath.Join(tempDir, "bad.tar.gz")
	require.NoError(t, am.Create(ctx, sourceDir, pkgPath))

	_, err := am.ReadManifest(ctx, pkgPath)
	assert.Error(t, err)
	_, err = am.Extract(ctx, pkgPath, filepath.Join(tempDir, "staging"))
	assert.Error(t, err)
}

func TestArchiveManager_InvalidManifest(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()
	am := NewManager()

	sourceDir := filepath.Join(tempDir, "source")
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, "meta"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "meta", "package.json"), []byte(`{"name":"x"}`), 0o644))
	pkgPath := filepath.Join(tempDir, "bad.tar.gz")
	require.NoError(t, am.Create(ctx, sourceDir, pkgPath))

	_, err := am.ReadManifest(ctx, pkgPath)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestArchiveManager_ExtractCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewManager().Extract(ctx, "does-not-matter", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	rpmPath := filepath.Join(dir, "fake.rpm")
	require.NoError(t, os.WriteFile(rpmPath, []byte{0xed, 0xab, 0xee, 0xdb, 0x03, 0x00}, 0o644))
	format, err := Detect(rpmPath)
	require.NoError(t, err)
	assert.Equal(t, FormatRPM, format)
	assert.Equal(t, "rpm", format.String())

	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte{0x1f}, 0o644))
	format, err = Detect(short)
	require.NoError(t, err)
	assert.Equal(t, FormatArchive, format)

	_, err = Detect(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = NewManager().ReadManifest(context.Background(), rpmPath)
	assert.ErrorIs(t, err, errors.ErrValidation, "a truncated rpm is rejected")
}

func TestManifest(t *testing.T) {
	m := &Manifest{Name: "foo", Version: "1.0", Release: "1", Arch: "noarch"}
	require.NoError(t, m.Validate())
	assert.Equal(t, "foo-1.0-1.noarch", m.NEVRA())
	assert.True(t, m.Matches(&model.Package{Name: "foo", EVR: evr.MustParse("0:1.0-1"), Arch: "noarch"}))
	assert.False(t, m.Matches(&model.Package{Name: "foo", EVR: evr.MustParse("1.0-2"), Arch: "noarch"}))
	assert.False(t, m.Matches(&model.Package{Name: "foo", EVR: evr.MustParse("1.0-1"), Arch: "x86_64"}))

	for _, bad := range []Manifest{
		{Version: "1", Arch: "noarch"},
		{Name: "x", Arch: "noarch"},
		{Name: "x", Version: "1"},
		{Name: "x", Version: "1", Arch: "noarch", Epoch: -1},
	} {
		assert.ErrorIs(t, bad.Validate(), errors.ErrValidation, "%+v", bad)
	}
}
