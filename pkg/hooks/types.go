//go:generate mockgen -destination=./mocks/runner.go . Runner

package hooks

import "context"

// HookType represents the type of hook.
type HookType string

// Supported hook types.
const (
	PreInstall  HookType = "pre-install"
	PostInstall HookType = "post-install"
	PreRemove   HookType = "pre-remove"
	PostRemove  HookType = "post-remove"
)

// Types lists the hook types in the order a replacing step runs them.
func Types() []HookType {
	return []HookType{PreInstall, PostInstall, PreRemove, PostRemove}
}

// Valid reports whether t is one of the supported hook types.
func (t HookType) Valid() bool {
	switch t {
	case PreInstall, PostInstall, PreRemove, PostRemove:
		return true
	}
	return false
}

// Hook represents a hook script with its type and content.
type Hook struct {
	Type    HookType
	Content string
}

// Set holds the scripts shipped by one package.
type Set map[HookType]string

// Get returns the hook of type t; its Content is empty when the package ships none.
func (s Set) Get(t HookType) Hook {
	return Hook{Type: t, Content: s[t]}
}

// Strings converts the set to the plain map stored in the installed database.
func (s Set) Strings() map[string]string {
	if len(s) == 0 {
		return nil
	}
	out := make(map[string]string, len(s))
	for t, body := range s {
		out[string(t)] = body
	}
	return out
}

// FromStrings is the inverse of Strings. Unknown hook names are dropped.
func FromStrings(m map[string]string) Set {
	out := Set{}
	for name, body := range m {
		if t := HookType(name); t.Valid() {
			out[t] = body
		}
	}
	return out
}

// HookContext contains information passed to hooks.
type HookContext struct {
	PackageName    string
	PackageVersion string
	PackageArch    string
	NEVRA          string
	Operation      string // install, reinstall, downgrade, update or remove
	InstallRoot    string
	StagingDir     string // extracted package tree; empty for removals
	OldVersion     string // replaced build, empty unless the step replaces one
	Vars           map[string]interface{}
}

// Runner executes package scriptlets.
type Runner interface {
	Run(ctx context.Context, hook Hook, hc HookContext) error
}
