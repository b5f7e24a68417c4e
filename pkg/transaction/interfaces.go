//go:generate mockgen -destination=./mocks/transaction.go . Database,Extractor

package transaction

import (
	"context"

	"github.com/glorpus-work/hif/pkg/archive"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/rpmdb"
)

// Database is the subset of the installed database the executor writes.
type Database interface {
	Has(ctx context.Context, p *model.Package) (bool, error)
	Apply(ctx context.Context, rec rpmdb.Record, replaces *model.Package) error
	Remove(ctx context.Context, p *model.Package) error
	Files(ctx context.Context, nevra string) ([]string, error)
	Owners(ctx context.Context, path string) ([]string, error)
	Scriptlets(ctx context.Context, nevra string) (map[string]string, error)
}

// Extractor opens downloaded packages.
type Extractor interface {
	ReadManifest(ctx context.Context, pkgPath string) (*archive.Manifest, error)
	Extract(ctx context.Context, pkgPath, stagingDir string) (*archive.Contents, error)
}

var (
	_ Database  = (*rpmdb.DB)(nil)
	_ Extractor = (*archive.Manager)(nil)
)
