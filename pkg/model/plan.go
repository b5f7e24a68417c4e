package model

import "fmt"

// ActionKind is the state change a plan step performs.
type ActionKind string

const (
	// ActionInstall adds a package to an empty slot.
	ActionInstall ActionKind = "install"
	// ActionReinstall replaces a package with the identical build.
	ActionReinstall ActionKind = "reinstall"
	// ActionDowngrade replaces a package with an older build.
	ActionDowngrade ActionKind = "downgrade"
	// ActionUpdate replaces a package with a newer build.
	ActionUpdate ActionKind = "update"
	// ActionRemove erases an installed package.
	ActionRemove ActionKind = "remove"
)

// Installs reports whether the action puts a package on the system.
func (k ActionKind) Installs() bool {
	return k != ActionRemove
}

// Action is one step of a plan. Package.Repo is the originating repository.
type Action struct {
	Kind     ActionKind
	Package  *Package
	Replaces *Package // installed build replaced by update, downgrade or reinstall
	Reason   InstallationReason
}

func (a Action) String() string {
	if a.Replaces != nil && a.Kind != ActionReinstall {
		return fmt.Sprintf("%s %s (%s) replacing %s", a.Kind, a.Package.NEVRA(), a.Package.Repo, a.Replaces.NEVRA())
	}
	return fmt.Sprintf("%s %s (%s)", a.Kind, a.Package.NEVRA(), a.Package.Repo)
}

// Plan is the resolver's ordered output. It is read-only once built.
type Plan struct {
	actions []Action
}

// NewPlan copies the actions into a new plan.
func NewPlan(actions []Action) *Plan {
	out := make([]Action, len(actions))
	copy(out, actions)
	return &Plan{actions: out}
}

// Actions returns a copy of the ordered steps.
func (p *Plan) Actions() []Action {
	if p == nil {
		return nil
	}
	out := make([]Action, len(p.actions))
	copy(out, p.actions)
	return out
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.actions)
}

// Empty reports whether nothing would change.
func (p *Plan) Empty() bool {
	return p.Len() == 0
}

// Packages returns the packages of all actions whose kind is listed, in plan order.
func (p *Plan) Packages(kinds ...ActionKind) []*Package {
	if p == nil {
		return nil
	}
	var out []*Package
	for _, a := range p.actions {
		for _, k := range kinds {
			if a.Kind == k {
				out = append(out, a.Package)
				break
			}
		}
	}
	return out
}

// InstallSet returns the packages that end up installed.
func (p *Plan) InstallSet() []*Package {
	return p.Packages(ActionInstall, ActionReinstall, ActionDowngrade, ActionUpdate)
}

// RemoveSet returns the packages that end up erased.
func (p *Plan) RemoveSet() []*Package {
	return p.Packages(ActionRemove)
}

// DownloadSize sums the sizes of packages that must be fetched.
func (p *Plan) DownloadSize() int64 {
	var total int64
	for _, pkg := range p.InstallSet() {
		total += pkg.Size
	}
	return total
}
