// Package orchestrator composes the repository store, the package universe,
// the resolver and the transaction executor into the hif verbs.
package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/cache"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/lock"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/repository"
	"github.com/glorpus-work/hif/pkg/solver"
	"github.com/glorpus-work/hif/pkg/state"
	"github.com/glorpus-work/hif/pkg/transaction"
	"github.com/glorpus-work/hif/pkg/universe"
)

// ErrNoPackages is returned by the package verbs when no name was given.
var ErrNoPackages error = &argumentError{msg: "Not enough arguments, expected package or group name"}

type argumentError struct {
	msg string
}

func (e *argumentError) Error() string {
	return e.msg
}

func (e *argumentError) Unwrap() error {
	return errors.ErrInvalidArguments
}

// Progress weights of a package verb.
const (
	weightSetup   = 20
	weightResolve = 10
	weightRun     = 70
)

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// notifier turns refresh lines into events of phase.
func (o *Orchestrator) notifier(phase string) func(repo, msg string) {
	return func(repo, msg string) {
		emit(o.Hooks, Event{Phase: phase, ID: repo, Msg: msg})
	}
}

func (o *Orchestrator) newState() *state.State {
	return state.New(func(percent int) {
		logger.Debug("Progress", logger.Fields{"percent": percent})
		if o.Hooks.OnProgress != nil {
			o.Hooks.OnProgress(percent)
		}
	})
}

func (o *Orchestrator) out() io.Writer {
	if o.Out == nil {
		return io.Discard
	}
	return o.Out
}

func (o *Orchestrator) acquire() (*lock.Lock, error) {
	l, err := lock.Acquire(o.LockDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("Lock acquired", logger.Fields{"path": l.Path()})
	return l, nil
}

func release(l *lock.Lock) {
	if err := l.Release(); err != nil {
		logger.Warn("Cannot release lock", logger.Fields{"path": l.Path(), "error": err})
	}
}

// Install installs the packages matching names together with their dependencies.
func (o *Orchestrator) Install(ctx context.Context, names []string, opts Options) (*model.Plan, error) {
	if len(names) == 0 {
		return nil, ErrNoPackages
	}
	return o.run(ctx, "install", solver.NewGoal(0).Install(names...), 0, opts)
}

// Remove erases the installed packages matching names and everything that
// depends on them.
func (o *Orchestrator) Remove(ctx context.Context, names []string, opts Options) (*model.Plan, error) {
	if len(names) == 0 {
		return nil, ErrNoPackages
	}
	return o.run(ctx, "remove", solver.NewGoal(solver.FlagAllowUninstall).Remove(names...), 0, opts)
}

// Update moves the installed packages matching names to their newest builds.
func (o *Orchestrator) Update(ctx context.Context, names []string, opts Options) (*model.Plan, error) {
	if len(names) == 0 {
		return nil, ErrNoPackages
	}
	return o.run(ctx, "update", solver.NewGoal(0).Update(names...), 0, opts)
}

// Reinstall installs the identical builds of the packages matching names again.
func (o *Orchestrator) Reinstall(ctx context.Context, names []string, opts Options) (*model.Plan, error) {
	if len(names) == 0 {
		return nil, ErrNoPackages
	}
	return o.run(ctx, "reinstall", solver.NewGoal(0).Reinstall(names...), transaction.FlagAllowReinstall, opts)
}

// run resolves goal against freshly set up repositories, prints the
// transaction summary and executes the plan.
func (o *Orchestrator) run(ctx context.Context, verb string, goal *solver.Goal, extra transaction.Flags, opts Options) (*model.Plan, error) {
	l, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer release(l)

	st := o.newState()
	if err := st.SetSteps(weightSetup, weightResolve, weightRun); err != nil {
		return nil, err
	}
	u, err := o.setup(ctx, st.Child())
	if err != nil {
		return nil, err
	}
	if err := st.Done(); err != nil {
		return nil, err
	}

	emit(o.Hooks, Event{Phase: PhaseResolving, ID: verb, Msg: goal.String()})
	plan, err := solver.Depsolve(ctx, u, goal)
	if err != nil {
		return nil, err
	}
	if err := st.Done(); err != nil {
		return nil, err
	}
	WriteSummary(o.out(), plan, u.Compare)

	if opts.Test {
		extra |= transaction.FlagTest
	}
	emit(o.Hooks, Event{Phase: PhaseRunning, ID: verb, Msg: fmt.Sprintf("%d steps", plan.Len())})
	if err := o.Exec.RunWith(ctx, plan, extra, st.Child()); err != nil {
		return plan, err
	}
	if err := st.Done(); err != nil {
		return plan, err
	}
	WriteComplete(o.out())
	emit(o.Hooks, Event{Phase: PhaseDone, ID: verb})
	return plan, nil
}

// setup refreshes stale repositories and loads the universe. A repository
// that cannot be fetched falls back to its cached metadata, or is left out,
// when it may be skipped; otherwise the fetch error is returned.
func (o *Orchestrator) setup(ctx context.Context, st *state.State) (*universe.Universe, error) {
	if err := st.SetSteps(60, 40); err != nil {
		return nil, err
	}
	results, err := o.Store.Refresh(ctx, repository.Enabled(o.Repos), repository.RefreshOptions{
		MaxAge:      o.MaxAge,
		Concurrency: o.Concurrency,
		OnMessage:   o.notifier(PhaseSetup),
	}, st.Child())
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Status == repository.RefreshSkipped && !r.Repo.SkipIfUnavailable {
			return nil, r.Err
		}
	}
	if err := st.Done(); err != nil {
		return nil, err
	}

	installed, err := o.DB.Installed(ctx)
	if err != nil {
		return nil, err
	}
	u, err := universe.Load(ctx, o.Store, o.Repos, installed, universe.Options{Arch: o.Arch})
	if err != nil {
		return nil, err
	}
	logger.Debug("Universe loaded", logger.Fields{"installed": len(u.Installed()), "available": len(u.Available())})
	return u, st.Done()
}

// Refresh checks every enabled repository and updates the stale ones, or all
// of them when force is set. Unreachable repositories are skipped.
func (o *Orchestrator) Refresh(ctx context.Context, force bool) ([]repository.RefreshResult, error) {
	l, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer release(l)

	results, err := o.Store.Refresh(ctx, repository.Enabled(o.Repos), repository.RefreshOptions{
		Force:       force,
		MaxAge:      o.MaxAge,
		Concurrency: o.Concurrency,
		OnMessage:   o.notifier(PhaseRefresh),
	}, o.newState())
	if err != nil {
		return results, err
	}
	counts := repository.Counts(results)
	logger.Debug("Refresh finished", logger.Fields{
		"fresh":   counts[repository.RefreshFresh],
		"updated": counts[repository.RefreshUpdated],
		"skipped": counts[repository.RefreshSkipped],
	})
	emit(o.Hooks, Event{Phase: PhaseDone, ID: "refresh"})
	return results, nil
}

// UpdateRepo downloads the metadata of one repository unconditionally. Any
// fetch failure is returned.
func (o *Orchestrator) UpdateRepo(ctx context.Context, id string) error {
	repo := repository.Find(o.Repos, id)
	if repo == nil {
		return errors.Wrapf(errors.ErrNotFound, "repository %s", id)
	}
	l, err := o.acquire()
	if err != nil {
		return err
	}
	defer release(l)

	emit(o.Hooks, Event{Phase: PhaseRefresh, ID: id, Msg: "Updating " + id})
	if err := o.Store.Update(ctx, repo, repository.UpdateOptions{Force: true}, o.newState()); err != nil {
		return err
	}
	emit(o.Hooks, Event{Phase: PhaseDone, ID: id})
	return nil
}

// Clean removes the metadata and solver cache of every configured
// repository and the downloaded packages.
func (o *Orchestrator) Clean(ctx context.Context) (*cache.CleanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer release(l)

	before, err := o.Cache.GetInfo()
	if err != nil {
		return nil, err
	}
	for _, repo := range o.Repos {
		emit(o.Hooks, Event{Phase: PhaseCleaning, ID: repo.ID, Msg: "Cleaning " + repo.ID})
		if err := o.Store.Clean(repo); err != nil {
			return nil, err
		}
	}
	res, err := o.Cache.Clean(cache.CleanOptions{Packages: true})
	if err != nil {
		return nil, err
	}
	after, err := o.Cache.GetInfo()
	if err != nil {
		return nil, err
	}
	if freed := before.MetadataSize - after.MetadataSize; freed > 0 {
		res.Add(cache.CleanResult{MetadataFreed: freed, TotalFreed: freed})
	}
	emit(o.Hooks, Event{Phase: PhaseDone, ID: "clean"})
	return res, nil
}
