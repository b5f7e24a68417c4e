package repository

import (
	"context"

	"github.com/glorpus-work/hif/pkg/download"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/state"
)

// Backend understands one repository metadata format.
type Backend interface {
	// Marker is the metadata file, relative to the repository root, that is
	// fetched first and whose mtime dates the cache.
	Marker() string
	// Revision reads the revision recorded in the marker file at path.
	// An empty revision disables conditional updates.
	Revision(path string) (string, error)
	// FetchData downloads everything the marker in dir references.
	FetchData(ctx context.Context, dl download.Manager, repo *Repository, dir string, st *state.State) error
	// Parse reads the packages from the metadata in dir.
	Parse(dir string, repo *Repository) ([]*model.Package, error)
}

// DefaultBackends returns the built-in metadata formats keyed by repository type.
func DefaultBackends() map[string]Backend {
	return map[string]Backend{
		KindRPMMD: &RPMMD{},
		KindJSON:  &JSONIndex{},
	}
}
