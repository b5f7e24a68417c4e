package solver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/model"
)

// ProblemKind classifies why a goal cannot be satisfied.
type ProblemKind int

const (
	// ProblemMissingProvider means no package provides a requirement.
	ProblemMissingProvider ProblemKind = iota
	// ProblemConflict means two packages cannot be installed together.
	ProblemConflict
	// ProblemBrokenInstalled means an installed package would lose a requirement.
	ProblemBrokenInstalled
	// ProblemJobClash means jobs of the goal ask for incompatible things.
	ProblemJobClash
	// ProblemBudget means the search gave up.
	ProblemBudget
)

// Problem is one reason a resolution attempt failed.
type Problem struct {
	Kind    ProblemKind
	Package *model.Package
	Dep     model.Reldep
	Other   *model.Package
}

func (p Problem) String() string {
	switch p.Kind {
	case ProblemMissingProvider:
		return fmt.Sprintf("nothing provides %s needed by %s", p.Dep, p.Package.NEVRA())
	case ProblemConflict:
		return fmt.Sprintf("%s conflicts with %s provided by %s", p.Package.NEVRA(), p.Dep, p.Other.NEVRA())
	case ProblemBrokenInstalled:
		return fmt.Sprintf("installed package %s requires %s", p.Package.NEVRA(), p.Dep)
	case ProblemJobClash:
		return fmt.Sprintf("%s cannot be installed because its slot is taken by %s", p.Package.NEVRA(), otherName(p.Other))
	default:
		return "resolution budget exhausted"
	}
}

func otherName(p *model.Package) string {
	if p == nil {
		return "a removal"
	}
	return p.NEVRA()
}

// UnsatisfiableError is returned when no plan fulfils the goal. Jobs is a
// minimal subset of the goal's jobs that is still unsatisfiable.
type UnsatisfiableError struct {
	Jobs     []Job
	Problems []Problem
}

func (e *UnsatisfiableError) Error() string {
	jobs := make([]string, len(e.Jobs))
	for i, j := range e.Jobs {
		jobs[i] = j.String()
	}
	probs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		probs[i] = p.String()
	}
	return fmt.Sprintf("cannot resolve %s: %s", strings.Join(jobs, ", "), strings.Join(probs, "; "))
}

// Unwrap exposes the error class.
func (e *UnsatisfiableError) Unwrap() error {
	return errors.ErrUnsatisfiable
}

type problemSet map[string]Problem

func (s problemSet) add(p Problem) {
	if len(s) < maxProblems {
		s[p.String()] = p
	}
}

func (s problemSet) sorted() []Problem {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Problem, 0, len(keys))
	for _, k := range keys {
		out = append(out, s[k])
	}
	return out
}
