// Package universe indexes the installed and available packages of one
// invocation and answers the queries of the resolver and the command layer.
package universe

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/evr"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/platform"
	"github.com/glorpus-work/hif/pkg/repository"
)

// unranked is the rank of repositories the universe was not told about.
const unranked = 1 << 30

// Loader returns the packages of one repository.
type Loader interface {
	Load(repo *repository.Repository) ([]*model.Package, error)
}

// Options configure a Universe.
type Options struct {
	// Arch is the system architecture; empty means the running machine.
	Arch string
	// RepoRank orders repositories, lower is preferred. Repositories missing
	// from the map rank after all listed ones.
	RepoRank map[string]int
}

// Universe is an immutable view of installed and available packages.
type Universe struct {
	arch string
	rank map[string]int

	installed []*model.Package
	available []*model.Package

	availableByProvide map[string][]*model.Package
	installedByProvide map[string][]*model.Package
}

// New builds a universe. Available packages that cannot be installed on the
// system architecture are dropped; installed packages are kept as they are.
func New(installed, available []*model.Package, opts Options) *Universe {
	u := &Universe{
		arch:               opts.Arch,
		rank:               opts.RepoRank,
		availableByProvide: make(map[string][]*model.Package),
		installedByProvide: make(map[string][]*model.Package),
	}
	if u.arch == "" {
		u.arch = platform.CurrentArch()
	}
	if u.rank == nil {
		u.rank = map[string]int{}
	}

	for _, p := range installed {
		u.installed = append(u.installed, p)
		index(u.installedByProvide, p)
	}
	dropped := 0
	for _, p := range available {
		if !platform.Compatible(u.arch, p.Arch) {
			dropped++
			continue
		}
		u.available = append(u.available, p)
		index(u.availableByProvide, p)
	}
	if dropped > 0 {
		logger.Debug("dropped packages for other architectures", logger.Fields{"count": dropped, "arch": u.arch})
	}

	u.sortDesc(u.installed)
	u.sortDesc(u.available)
	for _, list := range u.availableByProvide {
		u.sortDesc(list)
	}
	for _, list := range u.installedByProvide {
		u.sortDesc(list)
	}
	return u
}

// Load reads the available packages of every enabled repository through l
// and builds a universe ranked by repository priority, then configuration
// order. A repository without metadata is left out when it may be skipped.
func Load(ctx context.Context, l Loader, repos []*repository.Repository, installed []*model.Package, opts Options) (*Universe, error) {
	enabled := repository.Enabled(repos)
	if opts.RepoRank == nil {
		opts.RepoRank = Rank(enabled)
	}
	var available []*model.Package
	for _, repo := range enabled {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkgs, err := l.Load(repo)
		if err != nil {
			if errors.Is(err, repository.ErrNoMetadata) && repo.SkipIfUnavailable {
				logger.Warn("no metadata available, skipping repository", logger.Fields{"repo": repo.ID})
				continue
			}
			return nil, err
		}
		available = append(available, pkgs...)
	}
	return New(installed, available, opts), nil
}

// Rank orders repositories by priority (lower first), then by their
// position in the configuration.
func Rank(repos []*repository.Repository) map[string]int {
	sorted := make([]*repository.Repository, len(repos))
	copy(sorted, repos)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].Order < sorted[j].Order
	})
	out := make(map[string]int, len(sorted))
	for i, r := range sorted {
		out[r.ID] = i
	}
	return out
}

func index(m map[string][]*model.Package, p *model.Package) {
	seen := map[string]bool{p.Name: true}
	m[p.Name] = append(m[p.Name], p)
	for _, prov := range p.Provides {
		if !seen[prov.Name] {
			seen[prov.Name] = true
			m[prov.Name] = append(m[prov.Name], p)
		}
	}
	for _, f := range p.Files {
		if !seen[f] {
			seen[f] = true
			m[f] = append(m[f], p)
		}
	}
}

// Arch returns the system architecture.
func (u *Universe) Arch() string {
	return u.arch
}

// RepoRank returns the rank of a repository; lower is preferred.
func (u *Universe) RepoRank(repo string) int {
	if r, ok := u.rank[repo]; ok {
		return r
	}
	return unranked
}

// ArchScore ranks the package architecture for the system; lower is preferred.
func (u *Universe) ArchScore(p *model.Package) int {
	return platform.Score(u.arch, p.Arch)
}

// Compare is a strict total order over packages: name, then EVR, then
// architecture, then repository, then the literal version and release. Among
// identical builds the package from the preferred repository compares greater.
func (u *Universe) Compare(a, b *model.Package) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := evr.Compare(a.EVR, b.EVR); c != 0 {
		return c
	}
	if c := strings.Compare(a.Arch, b.Arch); c != 0 {
		return c
	}
	if ra, rb := u.RepoRank(a.Repo), u.RepoRank(b.Repo); ra != rb {
		if ra < rb {
			return 1
		}
		return -1
	}
	if c := strings.Compare(b.Repo, a.Repo); c != 0 {
		return c
	}
	// rpm ordering treats 1.0 and 1.00 alike; the literal strings keep
	// distinct builds apart.
	if c := strings.Compare(a.EVR.Version, b.EVR.Version); c != 0 {
		return c
	}
	return strings.Compare(a.EVR.Release, b.EVR.Release)
}

// sortDesc orders packages by name, newest first within a name.
func (u *Universe) sortDesc(list []*model.Package) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return u.Compare(list[i], list[j]) > 0
	})
}

// Installed returns every installed package sorted by name, newest first.
func (u *Universe) Installed() []*model.Package {
	return append([]*model.Package(nil), u.installed...)
}

// Available returns every installable package sorted by name, newest first.
func (u *Universe) Available() []*model.Package {
	return append([]*model.Package(nil), u.available...)
}

// FindCandidates returns the available packages matching pattern sorted by
// name, newest first. The pattern is a name, a glob over names, name.arch,
// name-version-release or a full NEVRA.
func (u *Universe) FindCandidates(pattern string) []*model.Package {
	return u.find(u.available, pattern)
}

// FindInstalled is FindCandidates over installed packages.
func (u *Universe) FindInstalled(pattern string) []*model.Package {
	return u.find(u.installed, pattern)
}

// InstalledNamed returns the installed packages with exactly this name.
func (u *Universe) InstalledNamed(name string) []*model.Package {
	var out []*model.Package
	for _, p := range u.installedByProvide[name] {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// AvailableNamed returns the available packages with exactly this name.
func (u *Universe) AvailableNamed(name string) []*model.Package {
	var out []*model.Package
	for _, p := range u.availableByProvide[name] {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// WhatProvides returns the available packages satisfying dep, newest first.
func (u *Universe) WhatProvides(dep model.Reldep) []*model.Package {
	return providers(u.availableByProvide[dep.Name], dep)
}

// WhatProvidesInstalled returns the installed packages satisfying dep.
func (u *Universe) WhatProvidesInstalled(dep model.Reldep) []*model.Package {
	return providers(u.installedByProvide[dep.Name], dep)
}

func providers(list []*model.Package, dep model.Reldep) []*model.Package {
	var out []*model.Package
	for _, p := range list {
		if p.ProvidesDep(dep) {
			out = append(out, p)
		}
	}
	return out
}

func (u *Universe) find(list []*model.Package, pattern string) []*model.Package {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	glob := strings.ContainsAny(pattern, "*?[")
	var out []*model.Package
	for _, p := range list {
		if matches(p, pattern, glob) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p *model.Package, pattern string, glob bool) bool {
	if glob {
		if ok, err := path.Match(pattern, p.Name); err == nil && ok {
			return true
		}
		ok, err := path.Match(pattern, p.NEVRA())
		return err == nil && ok
	}
	switch pattern {
	case p.Name, p.NEVRA(), p.Name + "." + p.Arch, p.Name + "-" + p.EVR.String():
		return true
	}
	return false
}
