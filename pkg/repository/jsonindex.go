package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-version"

	"github.com/glorpus-work/hif/pkg/download"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/evr"
	"github.com/glorpus-work/hif/pkg/fsutil"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/state"
)

const (
	// IndexFile is the marker and only metadata file of a JSON repository.
	IndexFile = "index.json"
	// IndexFormatVersion is written by WriteIndex.
	IndexFormatVersion = "1.0"
	// SupportedIndexFormats is the format_version constraint accepted on read.
	SupportedIndexFormats = ">= 1.0, < 2.0"
)

// Index is the document stored in index.json.
type Index struct {
	FormatVersion string       `json:"format_version"`
	Revision      string       `json:"revision,omitempty"`
	Packages      []IndexEntry `json:"packages"`
}

// IndexEntry describes one package build in index.json. Dependencies use
// the textual form "name [op evr]".
type IndexEntry struct {
	Name      string         `json:"name"`
	Epoch     int            `json:"epoch,omitempty"`
	Version   string         `json:"version"`
	Release   string         `json:"release,omitempty"`
	Arch      string         `json:"arch"`
	Summary   string         `json:"summary,omitempty"`
	Size      int64          `json:"size,omitempty"`
	Checksum  model.Checksum `json:"checksum"`
	Location  string         `json:"location"`
	Requires  []string       `json:"requires,omitempty"`
	Provides  []string       `json:"provides,omitempty"`
	Conflicts []string       `json:"conflicts,omitempty"`
	Files     []string       `json:"files,omitempty"`
}

// JSONIndex reads repositories described by a single index.json.
type JSONIndex struct{}

// Marker implements Backend.
func (b *JSONIndex) Marker() string {
	return IndexFile
}

// Revision implements Backend.
func (b *JSONIndex) Revision(p string) (string, error) {
	idx, err := ReadIndex(p)
	if err != nil {
		return "", err
	}
	return idx.Revision, nil
}

// FetchData implements Backend; everything lives in the marker.
func (b *JSONIndex) FetchData(_ context.Context, _ download.Manager, _ *Repository, _ string, st *state.State) error {
	if st != nil {
		return st.Finished()
	}
	return nil
}

// Parse implements Backend.
func (b *JSONIndex) Parse(dir string, repo *Repository) ([]*model.Package, error) {
	idx, err := ReadIndex(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, err
	}
	out := make([]*model.Package, 0, len(idx.Packages))
	for i := range idx.Packages {
		pkg, err := idx.Packages[i].toPackage(repo.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errors.ErrMetadataFormat, idx.Packages[i].Name, err)
		}
		out = append(out, pkg)
	}
	return out, nil
}

// ReadIndex parses and validates an index.json file.
func ReadIndex(p string) (*Index, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open index file %s", p)
	}
	defer func() { _ = f.Close() }()
	return ParseIndex(f)
}

// ParseIndex decodes an index and checks its format version.
func ParseIndex(r io.Reader) (*Index, error) {
	var idx Index
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return nil, fmt.Errorf("%w: index: %w", errors.ErrMetadataFormat, err)
	}
	if idx.FormatVersion == "" {
		return nil, fmt.Errorf("%w: missing format version in index", errors.ErrMetadataFormat)
	}
	v, err := version.NewVersion(idx.FormatVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: format version %q: %w", errors.ErrMetadataFormat, idx.FormatVersion, err)
	}
	constraint := version.MustConstraints(version.NewConstraint(SupportedIndexFormats))
	if !constraint.Check(v) {
		return nil, fmt.Errorf("%w: index format %s is not %s", errors.ErrMetadataFormat, v, SupportedIndexFormats)
	}
	return &idx, nil
}

// WriteIndex writes packages as an index.json document at p.
func WriteIndex(p, revision string, pkgs []*model.Package) error {
	idx := Index{FormatVersion: IndexFormatVersion, Revision: revision}
	for _, pkg := range pkgs {
		idx.Packages = append(idx.Packages, entryFromPackage(pkg))
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal index to JSON")
	}
	return fsutil.WriteFileAtomic(p, data, fsutil.FileModeDefault)
}

func entryFromPackage(p *model.Package) IndexEntry {
	return IndexEntry{
		Name:      p.Name,
		Epoch:     p.EVR.Epoch,
		Version:   p.EVR.Version,
		Release:   p.EVR.Release,
		Arch:      p.Arch,
		Summary:   p.Summary,
		Size:      p.Size,
		Checksum:  p.Checksum,
		Location:  p.Location,
		Requires:  reldepStrings(p.Requires),
		Provides:  reldepStrings(p.Provides),
		Conflicts: reldepStrings(p.Conflicts),
		Files:     p.Files,
	}
}

func reldepStrings(deps []model.Reldep) []string {
	if len(deps) == 0 {
		return nil
	}
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.String()
	}
	return out
}

func (e *IndexEntry) toPackage(repoID string) (*model.Package, error) {
	if e.Name == "" || e.Version == "" || e.Arch == "" {
		return nil, fmt.Errorf("entry needs name, version and arch")
	}
	if e.Epoch < 0 {
		return nil, fmt.Errorf("negative epoch")
	}
	pkg := &model.Package{
		Name:     e.Name,
		EVR:      evr.EVR{Epoch: e.Epoch, Version: e.Version, Release: e.Release},
		Arch:     e.Arch,
		Repo:     repoID,
		Summary:  e.Summary,
		Size:     e.Size,
		Checksum: e.Checksum,
		Location: e.Location,
		Files:    e.Files,
	}
	var err error
	if pkg.Requires, err = model.ParseReldeps(e.Requires); err != nil {
		return nil, err
	}
	if pkg.Provides, err = model.ParseReldeps(e.Provides); err != nil {
		return nil, err
	}
	if pkg.Conflicts, err = model.ParseReldeps(e.Conflicts); err != nil {
		return nil, err
	}
	return pkg, nil
}
