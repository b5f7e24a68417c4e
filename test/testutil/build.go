package testutil

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/hif/pkg/archive"
	"github.com/glorpus-work/hif/pkg/config"
	"github.com/glorpus-work/hif/pkg/download"
	"github.com/glorpus-work/hif/pkg/hooks"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/repository"
)

// BuildPackage writes an archive package for p below repoRoot and fills in
// its Location, Size and sha256 Checksum. Data keys are install paths.
func BuildPackage(t *testing.T, repoRoot string, p *model.Package, data map[string]string, scripts hooks.Set) *model.Package {
	t.Helper()
	p.Location = "Packages/" + p.Name + "-" + p.EVR.Version + "-" + p.EVR.Release + "." + p.Arch + ".tar.gz"
	out := filepath.Join(repoRoot, filepath.FromSlash(p.Location))
	m := &archive.Manifest{
		Name:    p.Name,
		Epoch:   p.EVR.Epoch,
		Version: p.EVR.Version,
		Release: p.EVR.Release,
		Arch:    p.Arch,
		Summary: p.Summary,
	}
	if err := archive.NewManager().Build(context.Background(), m, data, scripts, out); err != nil {
		t.Fatalf("build package %s: %v", p.NEVRA(), err)
	}
	sum, err := download.HashFile(out, "sha256")
	if err != nil {
		t.Fatalf("hash package %s: %v", p.NEVRA(), err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat package %s: %v", p.NEVRA(), err)
	}
	p.Checksum = model.Checksum{Type: "sha256", Value: sum}
	p.Size = info.Size()
	return p
}

// Repo returns an enabled rpm-md repository served from base.
func Repo(t *testing.T, id, base string) *repository.Repository {
	t.Helper()
	return &repository.Repository{
		ID:                id,
		Name:              id,
		BaseURLs:          []*url.URL{MustURL(t, base)},
		Enabled:           true,
		Priority:          99,
		Kind:              config.KindRPMMD,
		SkipIfUnavailable: true,
	}
}
