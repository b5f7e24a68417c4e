package solver

import (
	"context"
	"maps"
	"slices"

	"github.com/glorpus-work/hif/pkg/evr"
	"github.com/glorpus-work/hif/pkg/model"
)

// node is one partial assignment of packages to slots.
type node struct {
	system  map[string]*model.Package
	locked  map[string]bool
	reasons map[string]model.InstallationReason
}

func (n *node) clone() *node {
	return &node{
		system:  maps.Clone(n.system),
		locked:  maps.Clone(n.locked),
		reasons: maps.Clone(n.reasons),
	}
}

// task is either a choice among alternatives or a requirement of a
// package placed earlier.
type task struct {
	alts   []*model.Package
	dep    *model.Reldep
	from   *model.Package
	reason model.InstallationReason
}

type search struct {
	ctx    context.Context
	pool   Pool
	flags  Flags
	budget int
	nodes  int

	installed   map[string]*model.Package
	healthy     map[*model.Package]bool
	conflicters map[string][]*model.Package

	problems  problemSet
	exhausted bool
	err       error
}

func newSearch(ctx context.Context, pool Pool, flags Flags, budget int) *search {
	s := &search{
		ctx:         ctx,
		pool:        pool,
		flags:       flags,
		budget:      budget,
		installed:   make(map[string]*model.Package),
		healthy:     make(map[*model.Package]bool),
		conflicters: make(map[string][]*model.Package),
		problems:    problemSet{},
	}
	installed := pool.Installed()
	for _, p := range installed {
		if _, ok := s.installed[p.Slot()]; !ok {
			s.installed[p.Slot()] = p
		}
	}
	for _, p := range installed {
		ok := true
		for _, r := range p.Requires {
			if len(pool.WhatProvidesInstalled(r)) == 0 {
				ok = false
				break
			}
		}
		s.healthy[p] = ok
	}
	for _, p := range append(installed, pool.Available()...) {
		for _, c := range p.Conflicts {
			s.conflicters[c.Name] = append(s.conflicters[c.Name], p)
		}
	}
	return s
}

// run searches for a system fulfilling jobs. A nil node without error means
// the jobs are unsatisfiable; s.problems says why.
func (s *search) run(jobs []expanded) (*node, error) {
	n := &node{
		system:  maps.Clone(s.installed),
		locked:  map[string]bool{},
		reasons: map[string]model.InstallationReason{},
	}
	for _, e := range jobs {
		for _, p := range e.erase {
			delete(n.system, p.Slot())
			n.locked[p.Slot()] = true
		}
	}
	var agenda []task
	for _, e := range jobs {
		for _, alts := range e.choices {
			agenda = append(agenda, task{alts: alts, reason: model.ReasonUser})
		}
	}
	res := s.solve(n, agenda)
	if s.err != nil {
		return nil, s.err
	}
	if s.exhausted {
		s.problems.add(Problem{Kind: ProblemBudget})
	}
	return res, nil
}

func (s *search) solve(n *node, agenda []task) *node {
	s.nodes++
	if s.nodes > s.budget {
		s.exhausted = true
		return nil
	}
	if s.nodes%256 == 0 {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return nil
		}
	}

	for len(agenda) > 0 {
		t := agenda[0]
		agenda = agenda[1:]
		if t.dep != nil {
			if s.satisfied(n, *t.dep) {
				continue
			}
			t.alts = s.providers(n, *t.dep)
			if len(t.alts) == 0 {
				s.problems.add(Problem{Kind: ProblemMissingProvider, Package: t.from, Dep: *t.dep})
				return nil
			}
		}
		for _, alt := range t.alts {
			if s.exhausted || s.err != nil {
				return nil
			}
			child, placed, ok := s.assign(n, alt, t.reason)
			if !ok {
				continue
			}
			next := make([]task, 0, len(alt.Requires)+len(agenda))
			if placed {
				for i := range alt.Requires {
					next = append(next, task{dep: &alt.Requires[i], from: alt, reason: model.ReasonDependency})
				}
			}
			next = append(next, agenda...)
			if res := s.solve(child, next); res != nil {
				return res
			}
		}
		return nil
	}
	return s.finish(n)
}

// assign puts p into its slot. placed reports whether p is new to the system.
func (s *search) assign(n *node, p *model.Package, reason model.InstallationReason) (*node, bool, bool) {
	slot := p.Slot()
	cur, present := n.system[slot]
	if n.locked[slot] {
		if present && cur == p {
			return n, false, true
		}
		s.problems.add(Problem{Kind: ProblemJobClash, Package: p, Other: cur})
		return nil, false, false
	}
	if present && cur == p {
		child := n.clone()
		child.locked[slot] = true
		return child, false, true
	}
	if prob, ok := s.conflict(n, p); ok {
		s.problems.add(prob)
		return nil, false, false
	}
	child := n.clone()
	child.system[slot] = p
	child.locked[slot] = true
	child.reasons[slot] = reason
	return child, true, true
}

// conflict checks p against every package that would remain beside it.
func (s *search) conflict(n *node, p *model.Package) (Problem, bool) {
	slot := p.Slot()
	for _, c := range p.Conflicts {
		for _, other := range s.present(n, c) {
			if other.Slot() != slot {
				return Problem{Kind: ProblemConflict, Package: p, Dep: c, Other: other}, true
			}
		}
	}
	for _, name := range capabilities(p) {
		for _, q := range s.conflicters[name] {
			if q.Slot() == slot || n.system[q.Slot()] != q {
				continue
			}
			if c, ok := q.ConflictsWith(p); ok {
				return Problem{Kind: ProblemConflict, Package: q, Dep: c, Other: p}, true
			}
		}
	}
	return Problem{}, false
}

func capabilities(p *model.Package) []string {
	out := make([]string, 0, 1+len(p.Provides)+len(p.Files))
	out = append(out, p.Name)
	for _, prov := range p.Provides {
		if prov.Name != p.Name {
			out = append(out, prov.Name)
		}
	}
	return append(out, p.Files...)
}

// present returns the packages of the system satisfying dep.
func (s *search) present(n *node, dep model.Reldep) []*model.Package {
	var out []*model.Package
	for _, p := range s.pool.WhatProvides(dep) {
		if n.system[p.Slot()] == p {
			out = append(out, p)
		}
	}
	for _, p := range s.pool.WhatProvidesInstalled(dep) {
		if n.system[p.Slot()] == p {
			out = append(out, p)
		}
	}
	return out
}

func (s *search) satisfied(n *node, dep model.Reldep) bool {
	for _, p := range s.pool.WhatProvidesInstalled(dep) {
		if n.system[p.Slot()] == p {
			return true
		}
	}
	for _, p := range s.pool.WhatProvides(dep) {
		if n.system[p.Slot()] == p {
			return true
		}
	}
	return false
}

// providers lists the available packages that could be placed to satisfy dep.
func (s *search) providers(n *node, dep model.Reldep) []*model.Package {
	var out []*model.Package
	for _, p := range s.pool.WhatProvides(dep) {
		slot := p.Slot()
		if n.locked[slot] {
			continue
		}
		if inst, ok := s.installed[slot]; ok && n.system[slot] == inst {
			if p.SameBuild(inst) {
				continue
			}
			if evr.Compare(p.EVR, inst.EVR) < 0 && s.flags&FlagAllowDowngrade == 0 {
				continue
			}
		}
		out = append(out, p)
	}
	sortAlternatives(s.pool, dep.Name, out)
	return out
}

// finish verifies the requirements of the complete system. Installed
// packages left broken are erased under FlagAllowUninstall.
func (s *search) finish(n *node) *node {
	for {
		var broken *model.Package
		var dep model.Reldep
		for _, slot := range slices.Sorted(maps.Keys(n.system)) {
			p := n.system[slot]
			if p == s.installed[slot] && !s.healthy[p] {
				continue
			}
			if d, ok := s.unmet(n, p); ok {
				broken, dep = p, d
				break
			}
		}
		if broken == nil {
			return n
		}
		slot := broken.Slot()
		isInstalled := broken == s.installed[slot]
		if isInstalled && s.flags&FlagAllowUninstall != 0 && !n.locked[slot] {
			n = n.clone()
			delete(n.system, slot)
			n.locked[slot] = true
			continue
		}
		kind := ProblemMissingProvider
		if isInstalled {
			kind = ProblemBrokenInstalled
		}
		s.problems.add(Problem{Kind: kind, Package: broken, Dep: dep})
		return nil
	}
}

func (s *search) unmet(n *node, p *model.Package) (model.Reldep, bool) {
	for _, r := range p.Requires {
		if !s.satisfied(n, r) {
			return r, true
		}
	}
	return model.Reldep{}, false
}

// plan turns the final system into ordered actions.
func (s *search) plan(n *node) *model.Plan {
	var installs, removes []model.Action
	for _, slot := range slices.Sorted(maps.Keys(n.system)) {
		p := n.system[slot]
		old := s.installed[slot]
		if p == old {
			continue
		}
		a := model.Action{Kind: model.ActionInstall, Package: p, Replaces: old, Reason: n.reasons[slot]}
		if old != nil {
			switch c := evr.Compare(p.EVR, old.EVR); {
			case c > 0:
				a.Kind = model.ActionUpdate
			case c < 0:
				a.Kind = model.ActionDowngrade
			default:
				a.Kind = model.ActionReinstall
			}
			if old.Reason != "" {
				a.Reason = old.Reason
			}
		}
		installs = append(installs, a)
	}
	for _, slot := range slices.Sorted(maps.Keys(s.installed)) {
		if _, ok := n.system[slot]; !ok {
			old := s.installed[slot]
			removes = append(removes, model.Action{Kind: model.ActionRemove, Package: old, Reason: old.Reason})
		}
	}
	return model.NewPlan(append(order(installs, false), order(removes, true)...))
}
