package testutil

import (
	"strings"

	"github.com/glorpus-work/hif/pkg/evr"
	"github.com/glorpus-work/hif/pkg/model"
)

// Pkg builds a package from "name-[epoch:]version-release.arch@repo". The
// repository part is optional and defaults to "main".
func Pkg(spec string) *model.Package {
	repo := "main"
	if i := strings.IndexByte(spec, '@'); i >= 0 {
		spec, repo = spec[:i], spec[i+1:]
	}
	dot := strings.LastIndexByte(spec, '.')
	arch := spec[dot+1:]
	spec = spec[:dot]
	rel := strings.LastIndexByte(spec, '-')
	ver := strings.LastIndexByte(spec[:rel], '-')
	return &model.Package{
		Name:     spec[:ver],
		EVR:      evr.MustParse(spec[ver+1:]),
		Arch:     arch,
		Repo:     repo,
		Location: "Packages/" + spec + "." + arch + ".rpm",
	}
}

// Deps parses dependency literals.
func Deps(list ...string) []model.Reldep {
	out := make([]model.Reldep, 0, len(list))
	for _, s := range list {
		out = append(out, model.MustParseReldep(s))
	}
	return out
}

// Requires sets the requirements of p and returns it.
func Requires(p *model.Package, deps ...string) *model.Package {
	p.Requires = Deps(deps...)
	return p
}

// Conflicts sets the conflicts of p and returns it.
func Conflicts(p *model.Package, deps ...string) *model.Package {
	p.Conflicts = Deps(deps...)
	return p
}

// Provides sets the provides of p and returns it.
func Provides(p *model.Package, deps ...string) *model.Package {
	p.Provides = Deps(deps...)
	return p
}

// Installed marks p as read from the installed database.
func Installed(p *model.Package) *model.Package {
	p.Installed = true
	p.Reason = model.ReasonUser
	return p
}
