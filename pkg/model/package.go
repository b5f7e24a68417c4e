// Package model holds the data types shared by the metadata store, the universe,
// the resolver and the transaction executor.
package model

import (
	"strings"

	"github.com/glorpus-work/hif/pkg/evr"
)

// SystemRepo is the pseudo repository of installed packages without a known origin.
const SystemRepo = "@System"

// Checksum is a typed hex digest.
type Checksum struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// IsZero reports whether no digest is known.
func (c Checksum) IsZero() bool {
	return c.Value == ""
}

// InstallationReason tracks why a package was installed.
type InstallationReason string

const (
	// ReasonUser marks packages the user asked for.
	ReasonUser InstallationReason = "user"
	// ReasonDependency marks packages pulled in to satisfy requirements.
	ReasonDependency InstallationReason = "dependency"
)

// Package is one build of a package as described by repository metadata or
// the installed database. Loaded packages are never modified.
type Package struct {
	Name    string  `json:"name"`
	EVR     evr.EVR `json:"evr"`
	Arch    string  `json:"arch"`
	Repo    string  `json:"repo"`
	Summary string  `json:"summary,omitempty"`

	Size     int64    `json:"size,omitempty"`
	Checksum Checksum `json:"checksum"`
	Location string   `json:"location,omitempty"`

	Requires  []Reldep `json:"requires,omitempty"`
	Provides  []Reldep `json:"provides,omitempty"`
	Conflicts []Reldep `json:"conflicts,omitempty"`
	Files     []string `json:"files,omitempty"`

	// Installed is set on packages read from the installed database.
	Installed bool               `json:"-"`
	Reason    InstallationReason `json:"-"`
}

// NEVRA renders name-[epoch:]version-release.arch.
func (p *Package) NEVRA() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte('-')
	b.WriteString(p.EVR.String())
	if p.Arch != "" {
		b.WriteByte('.')
		b.WriteString(p.Arch)
	}
	return b.String()
}

// String is NEVRA plus the repository.
func (p *Package) String() string {
	return p.NEVRA() + " (" + p.Repo + ")"
}

// Slot identifies the name+arch position a package occupies on a system.
func (p *Package) Slot() string {
	return p.Name + "." + p.Arch
}

// SelfProvide is the implicit "name = evr" capability of every package.
func (p *Package) SelfProvide() Reldep {
	return Reldep{Name: p.Name, Flags: FlagEQ, EVR: p.EVR}
}

// ProvidesDep reports whether the package satisfies the dependency through its
// own name, an explicit provide, or a listed file.
func (p *Package) ProvidesDep(dep Reldep) bool {
	if dep.IsFile() {
		for _, f := range p.Files {
			if f == dep.Name {
				return true
			}
		}
	}
	if p.SelfProvide().Matches(dep) {
		return true
	}
	for _, prov := range p.Provides {
		if prov.Matches(dep) {
			return true
		}
	}
	return false
}

// ConflictsWith reports whether p declares a conflict that other satisfies.
func (p *Package) ConflictsWith(other *Package) (Reldep, bool) {
	for _, c := range p.Conflicts {
		if other.ProvidesDep(c) {
			return c, true
		}
	}
	return Reldep{}, false
}

// SameBuild reports whether both packages share the full NEVRA.
func (p *Package) SameBuild(other *Package) bool {
	return p.Name == other.Name && p.Arch == other.Arch && evr.Compare(p.EVR, other.EVR) == 0
}
