package archive

import (
	"encoding/json"
	"io"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/evr"
	"github.com/glorpus-work/hif/pkg/model"
)

// Layout of an archive package.
const (
	ManifestPath = "meta/package.json"
	HooksDir     = "meta/hooks"
	DataDir      = "data"
)

// Manifest identifies the build an archive package contains.
type Manifest struct {
	Name    string `json:"name"`
	Epoch   int    `json:"epoch,omitempty"`
	Version string `json:"version"`
	Release string `json:"release,omitempty"`
	Arch    string `json:"arch"`
	Summary string `json:"summary,omitempty"`
}

// EVR returns the manifest's epoch, version and release.
func (m *Manifest) EVR() evr.EVR {
	return evr.EVR{Epoch: m.Epoch, Version: m.Version, Release: m.Release}
}

// NEVRA renders the manifest the same way model.Package does.
func (m *Manifest) NEVRA() string {
	p := model.Package{Name: m.Name, EVR: m.EVR(), Arch: m.Arch}
	return p.NEVRA()
}

// Matches reports whether the manifest describes the build p.
func (m *Manifest) Matches(p *model.Package) bool {
	return m.Name == p.Name && m.Arch == p.Arch && evr.Compare(m.EVR(), p.EVR) == 0
}

// Validate checks the required fields.
func (m *Manifest) Validate() error {
	switch {
	case m.Name == "":
		return errors.Wrap(errors.ErrValidation, "package manifest has no name")
	case m.Version == "":
		return errors.Wrapf(errors.ErrValidation, "package manifest of %s has no version", m.Name)
	case m.Arch == "":
		return errors.Wrapf(errors.ErrValidation, "package manifest of %s has no arch", m.Name)
	case m.Epoch < 0:
		return errors.Wrapf(errors.ErrValidation, "package manifest of %s has a negative epoch", m.Name)
	}
	return nil
}

func decodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "failed to parse %s: %v", ManifestPath, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func writeManifest(w io.Writer, m *Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
