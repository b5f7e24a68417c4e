package solver

import (
	"context"
	"fmt"
	"sort"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/evr"
	"github.com/glorpus-work/hif/pkg/model"
)

const (
	// defaultBudget bounds the number of search nodes per resolution attempt.
	defaultBudget = 200000
	maxProblems   = 32
)

// ErrGoalConsumed is returned when a goal is resolved twice.
var ErrGoalConsumed = errors.New("goal already resolved")

// Pool is the package universe the resolver works on.
type Pool interface {
	FindCandidates(pattern string) []*model.Package
	FindInstalled(pattern string) []*model.Package
	InstalledNamed(name string) []*model.Package
	WhatProvides(dep model.Reldep) []*model.Package
	WhatProvidesInstalled(dep model.Reldep) []*model.Package
	Installed() []*model.Package
	Available() []*model.Package
	Compare(a, b *model.Package) int
	ArchScore(p *model.Package) int
	RepoRank(repo string) int
}

// Option customizes Depsolve.
type Option func(*options)

type options struct {
	budget int
}

// WithBudget bounds the search nodes of one resolution attempt.
func WithBudget(n int) Option {
	return func(o *options) { o.budget = n }
}

// expanded is a job bound to concrete packages.
type expanded struct {
	job     Job
	erase   []*model.Package
	choices [][]*model.Package
}

// Depsolve resolves goal against pool. Patterns that match nothing fail with
// errors.ErrNotFound; goals without a valid plan fail with
// *UnsatisfiableError. Identical inputs always produce identical plans.
func Depsolve(ctx context.Context, pool Pool, goal *Goal, opts ...Option) (*model.Plan, error) {
	if goal.consumed {
		return nil, ErrGoalConsumed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	goal.consumed = true
	o := options{budget: defaultBudget}
	for _, opt := range opts {
		opt(&o)
	}

	jobs := make([]expanded, 0, len(goal.jobs))
	for _, j := range goal.jobs {
		e, err := expand(pool, j, goal.flags)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, e)
	}

	s := newSearch(ctx, pool, goal.flags, o.budget)
	n, err := s.run(jobs)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, minimize(ctx, pool, goal.flags, o.budget, jobs)
	}
	plan := s.plan(n)
	logger.Debug("resolved goal", logger.Fields{"goal": goal.String(), "steps": plan.Len(), "nodes": s.nodes})
	return plan, nil
}

// minimize drops jobs one at a time while the rest stays unsatisfiable.
func minimize(ctx context.Context, pool Pool, flags Flags, budget int, jobs []expanded) error {
	keep := append([]expanded(nil), jobs...)
	for i := 0; i < len(keep) && len(keep) > 1; {
		trial := append(append([]expanded(nil), keep[:i]...), keep[i+1:]...)
		n, err := newSearch(ctx, pool, flags, budget).run(trial)
		if err != nil {
			return err
		}
		if n == nil {
			keep = trial
			continue
		}
		i++
	}
	s := newSearch(ctx, pool, flags, budget)
	if _, err := s.run(keep); err != nil {
		return err
	}
	out := &UnsatisfiableError{Problems: s.problems.sorted()}
	for _, e := range keep {
		out.Jobs = append(out.Jobs, e.job)
	}
	return out
}

func notFound(j Job, what string) error {
	return fmt.Errorf("%s: %s %q: %w", j.Kind, what, j.Pattern, errors.ErrNotFound)
}

func expand(pool Pool, j Job, flags Flags) (expanded, error) {
	e := expanded{job: j}
	switch j.Kind {
	case JobInstall:
		cands := pool.FindCandidates(j.Pattern)
		installed := pool.FindInstalled(j.Pattern)
		if len(cands) == 0 {
			if len(installed) > 0 {
				logger.Info("pattern matches only installed packages", logger.Fields{
					"pattern": j.Pattern, "installed": nevras(installed),
				})
				return e, nil
			}
			return e, notFound(j, "no package matches")
		}
		matched := map[string][]*model.Package{}
		for _, p := range installed {
			matched[p.Name] = append(matched[p.Name], p)
		}
		for _, name := range names(cands) {
			if inst := matched[name]; len(inst) > 0 {
				logger.Debug("pattern matches an installed build, skipping name", logger.Fields{
					"pattern": j.Pattern, "installed": nevras(inst),
				})
				continue
			}
			alts := filterNamed(cands, name)
			if inst := pool.InstalledNamed(name); len(inst) > 0 {
				alts = replacements(inst, alts, flags&FlagAllowDowngrade != 0)
				if len(alts) == 0 {
					logger.Info("installed build is not older than any candidate", logger.Fields{
						"pattern": j.Pattern, "installed": nevras(inst),
					})
					continue
				}
			}
			sortAlternatives(pool, name, alts)
			e.choices = append(e.choices, alts)
		}

	case JobRemove:
		e.erase = pool.FindInstalled(j.Pattern)
		if len(e.erase) == 0 {
			return e, notFound(j, "no installed package matches")
		}

	case JobUpdate:
		installed := pool.FindInstalled(j.Pattern)
		if len(installed) == 0 {
			return e, notFound(j, "no installed package matches")
		}
		for _, inst := range installed {
			var alts []*model.Package
			for _, c := range pool.FindCandidates(inst.Name) {
				if c.Slot() == inst.Slot() && evr.Compare(c.EVR, inst.EVR) > 0 {
					alts = append(alts, c)
				}
			}
			if len(alts) == 0 {
				continue
			}
			sortAlternatives(pool, inst.Name, alts)
			e.choices = append(e.choices, append(alts, inst))
		}

	case JobReinstall:
		installed := pool.FindInstalled(j.Pattern)
		if len(installed) == 0 {
			return e, notFound(j, "no installed package matches")
		}
		for _, inst := range installed {
			var alts []*model.Package
			for _, c := range pool.FindCandidates(inst.Name) {
				if c.SameBuild(inst) {
					alts = append(alts, c)
				}
			}
			if len(alts) == 0 {
				return e, notFound(j, "no available build of "+inst.NEVRA()+" for")
			}
			sortAlternatives(pool, inst.Name, alts)
			e.choices = append(e.choices, alts)
		}
	}
	return e, nil
}

// replacements keeps the candidates for slots without an installed build
// and, for occupied slots, the ones that may replace the installed build.
func replacements(installed, cands []*model.Package, downgrade bool) []*model.Package {
	bySlot := make(map[string]*model.Package, len(installed))
	for _, inst := range installed {
		bySlot[inst.Slot()] = inst
	}
	var out []*model.Package
	for _, c := range cands {
		inst, ok := bySlot[c.Slot()]
		if !ok {
			out = append(out, c)
			continue
		}
		if cmp := evr.Compare(c.EVR, inst.EVR); cmp > 0 || (cmp < 0 && downgrade) {
			out = append(out, c)
		}
	}
	return out
}

func nevras(pkgs []*model.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.NEVRA()
	}
	return out
}

func names(pkgs []*model.Package) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range pkgs {
		if !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out
}

func filterNamed(pkgs []*model.Package, name string) []*model.Package {
	var out []*model.Package
	for _, p := range pkgs {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// sortAlternatives orders providers: packages named like the capability
// first, then by name, highest EVR, preferred architecture and repository.
func sortAlternatives(pool Pool, capability string, alts []*model.Package) {
	sort.SliceStable(alts, func(i, j int) bool {
		a, b := alts[i], alts[j]
		if an, bn := a.Name == capability, b.Name == capability; an != bn {
			return an
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if c := evr.Compare(a.EVR, b.EVR); c != 0 {
			return c > 0
		}
		if sa, sb := pool.ArchScore(a), pool.ArchScore(b); sa != sb {
			return sa < sb
		}
		if ra, rb := pool.RepoRank(a.Repo), pool.RepoRank(b.Repo); ra != rb {
			return ra < rb
		}
		return pool.Compare(a, b) > 0
	})
}
