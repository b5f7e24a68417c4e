//go:generate mockgen -destination=./mocks/orchestrator.go . MetadataStore,InstalledPackages,PlanRunner

package orchestrator

import (
	"context"
	"io"
	"time"

	"github.com/glorpus-work/hif/pkg/cache"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/repository"
	"github.com/glorpus-work/hif/pkg/state"
	"github.com/glorpus-work/hif/pkg/transaction"
)

// MetadataStore is the subset of the repository store used by the orchestrator.
type MetadataStore interface {
	Load(repo *repository.Repository) ([]*model.Package, error)
	Refresh(ctx context.Context, repos []*repository.Repository, opts repository.RefreshOptions, st *state.State) ([]repository.RefreshResult, error)
	Update(ctx context.Context, repo *repository.Repository, opts repository.UpdateOptions, st *state.State) error
	Clean(repo *repository.Repository) error
}

// InstalledPackages lists what the installed database holds.
type InstalledPackages interface {
	Installed(ctx context.Context) ([]*model.Package, error)
}

// PlanRunner executes resolved plans.
type PlanRunner interface {
	RunWith(ctx context.Context, plan *model.Plan, extra transaction.Flags, st *state.State) error
}

// Orchestrator ties the metadata store, resolver and executor together for
// one invocation. Every verb holds the process lock in LockDir.
type Orchestrator struct {
	Repos []*repository.Repository
	Store MetadataStore
	DB    InstalledPackages
	Exec  PlanRunner
	Cache cache.Manager

	LockDir string
	// Arch is the system architecture; empty means the running machine.
	Arch string
	// MaxAge is the default metadata cache age.
	MaxAge      time.Duration
	Concurrency int

	// Out receives the transaction summary. Nil discards it.
	Out   io.Writer
	Hooks Hooks // Hooks for progress and event notifications
}

// Event phases.
const (
	PhaseSetup     = "setup"
	PhaseRefresh   = "refresh"
	PhaseResolving = "resolving"
	PhaseRunning   = "running"
	PhaseCleaning  = "cleaning"
	PhaseDone      = "done"
)

// Event represents a simple progress notification.
type Event struct {
	Phase string // setup|refresh|resolving|running|cleaning|done
	ID    string // repository id or verb
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
	// OnProgress receives overall percentages of the running verb.
	OnProgress func(percent int)
}

// Options control a package verb.
type Options struct {
	// Test resolves, downloads and verifies without changing the system.
	Test bool
}
