// Package solver turns a goal (install, remove, update and reinstall jobs)
// into an ordered plan over a package universe.
package solver

import (
	"fmt"
	"strings"
)

// JobKind is the requested change of a job.
type JobKind int

const (
	// JobInstall installs the best candidate matching the pattern.
	JobInstall JobKind = iota
	// JobRemove erases installed packages matching the pattern.
	JobRemove
	// JobUpdate replaces installed packages with newer candidates.
	JobUpdate
	// JobReinstall replaces installed packages with the identical build.
	JobReinstall
)

func (k JobKind) String() string {
	switch k {
	case JobInstall:
		return "install"
	case JobRemove:
		return "remove"
	case JobUpdate:
		return "update"
	case JobReinstall:
		return "reinstall"
	default:
		return fmt.Sprintf("job(%d)", int(k))
	}
}

// Job is one request of a goal.
type Job struct {
	Kind    JobKind
	Pattern string
}

func (j Job) String() string {
	return j.Kind.String() + " " + j.Pattern
}

// Flags select the resolution mode.
type Flags uint

const (
	// FlagAllowUninstall lets removals erase installed packages left broken.
	FlagAllowUninstall Flags = 1 << iota
	// FlagAllowDowngrade lets the resolver pick an older build for an installed slot.
	FlagAllowDowngrade
)

// Goal collects the jobs of one invocation.
type Goal struct {
	jobs     []Job
	flags    Flags
	consumed bool
}

// NewGoal returns an empty goal.
func NewGoal(flags Flags) *Goal {
	return &Goal{flags: flags}
}

func (g *Goal) add(kind JobKind, patterns []string) *Goal {
	for _, p := range patterns {
		g.jobs = append(g.jobs, Job{Kind: kind, Pattern: p})
	}
	return g
}

// Install adds install jobs.
func (g *Goal) Install(patterns ...string) *Goal { return g.add(JobInstall, patterns) }

// Remove adds remove jobs.
func (g *Goal) Remove(patterns ...string) *Goal { return g.add(JobRemove, patterns) }

// Update adds update jobs.
func (g *Goal) Update(patterns ...string) *Goal { return g.add(JobUpdate, patterns) }

// Reinstall adds reinstall jobs.
func (g *Goal) Reinstall(patterns ...string) *Goal { return g.add(JobReinstall, patterns) }

// Jobs returns a copy of the jobs in the order they were added.
func (g *Goal) Jobs() []Job {
	return append([]Job(nil), g.jobs...)
}

// Flags returns the resolution mode.
func (g *Goal) Flags() Flags {
	return g.flags
}

// Empty reports whether the goal has no jobs.
func (g *Goal) Empty() bool {
	return len(g.jobs) == 0
}

func (g *Goal) String() string {
	parts := make([]string, len(g.jobs))
	for i, j := range g.jobs {
		parts[i] = j.String()
	}
	return strings.Join(parts, ", ")
}
