// Package transaction carries out a resolved plan: every step downloads,
// verifies and applies one package change against the install root and the
// installed database.
package transaction

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/archive"
	"github.com/glorpus-work/hif/pkg/cache"
	"github.com/glorpus-work/hif/pkg/download"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/fsutil"
	"github.com/glorpus-work/hif/pkg/hooks"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/repository"
	"github.com/glorpus-work/hif/pkg/state"
)

// Flags change how a plan is executed.
type Flags uint

const (
	// FlagAllowReinstall applies install and reinstall steps even when the
	// exact build is already recorded as installed.
	FlagAllowReinstall Flags = 1 << iota
	// FlagKeepCache keeps downloaded packages after a successful run.
	FlagKeepCache
	// FlagTest downloads and verifies without touching the system.
	FlagTest
)

// Has reports whether every flag in f is set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Progress weights of the phases of one step.
const (
	weightDownload = 40
	weightVerify   = 10
	weightApply    = 50
)

// Executor runs plans.
type Executor struct {
	db        Database
	dl        download.Manager
	cache     cache.Manager
	extractor Extractor
	hooks     hooks.Runner
	repos     map[string]*repository.Repository
	root      string
	workDir   string
	flags     Flags
}

// Option configures an Executor.
type Option func(*Executor)

// WithRepositories makes the base URLs of repos available for downloads.
func WithRepositories(repos []*repository.Repository) Option {
	return func(e *Executor) {
		for _, r := range repos {
			e.repos[r.ID] = r
		}
	}
}

// WithHooks replaces the scriptlet runner.
func WithHooks(r hooks.Runner) Option {
	return func(e *Executor) { e.hooks = r }
}

// WithExtractor replaces the package extractor.
func WithExtractor(x Extractor) Option {
	return func(e *Executor) { e.extractor = x }
}

// WithWorkDir sets where staging trees and backups are created.
func WithWorkDir(dir string) Option {
	return func(e *Executor) { e.workDir = dir }
}

// WithFlags sets the execution flags.
func WithFlags(f Flags) Option {
	return func(e *Executor) { e.flags = f }
}

// New returns an executor installing into root.
func New(db Database, dl download.Manager, cacheMgr cache.Manager, root string, opts ...Option) *Executor {
	e := &Executor{
		db:        db,
		dl:        dl,
		cache:     cacheMgr,
		extractor: archive.NewManager(),
		hooks:     hooks.NewTengoExecutor(),
		repos:     map[string]*repository.Repository{},
		root:      root,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Flags returns the execution flags.
func (e *Executor) Flags() Flags {
	return e.flags
}

// Using returns a copy of e running with flags.
func (e *Executor) Using(flags Flags) *Executor {
	c := *e
	c.flags = flags
	return &c
}

// RunWith runs plan with extra flags added to the executor's own.
func (e *Executor) RunWith(ctx context.Context, plan *model.Plan, extra Flags, st *state.State) error {
	return e.Using(e.flags|extra).Run(ctx, plan, st)
}

// Run executes the plan in order. The first failing step aborts the run with
// a *StepError; steps already applied are not rolled back.
func (e *Executor) Run(ctx context.Context, plan *model.Plan, st *state.State) error {
	actions := plan.Actions()
	if len(actions) == 0 {
		return nil
	}
	if st == nil {
		st = state.New(nil)
	}
	if err := st.SetNumberSteps(len(actions)); err != nil {
		return err
	}
	for _, dir := range []string{e.workDir, e.root} {
		if dir == "" {
			continue
		}
		if err := fsutil.EnsureDir(dir); err != nil {
			return err
		}
	}

	var downloaded []string
	for i, a := range actions {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("transaction interrupted before step %d: %w", i+1, err)
		}
		logger.Debug("Running step", logger.Fields{"index": i + 1, "action": a.String()})

		file, err := e.step(ctx, i, a, st.Child())
		if file != "" {
			downloaded = append(downloaded, file)
		}
		if err != nil {
			return err
		}
		if err := st.Done(); err != nil {
			return err
		}
	}

	if !e.flags.Has(FlagKeepCache) && !e.flags.Has(FlagTest) {
		for _, f := range downloaded {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				logger.Warn("Cannot remove cached package", logger.Fields{"path": f, "error": err})
			}
		}
	}
	return nil
}

// step runs one action and returns the downloaded file, if any.
func (e *Executor) step(ctx context.Context, idx int, a model.Action, st *state.State) (string, error) {
	fail := func(phase Phase, err error) error {
		logger.Error("Step failed", logger.Fields{"index": idx + 1, "action": a.String(), "phase": string(phase), "error": err})
		return &StepError{Index: idx, Action: a, Phase: phase, Err: err}
	}
	if err := st.SetSteps(weightDownload, weightVerify, weightApply); err != nil {
		return "", err
	}

	if a.Kind == model.ActionRemove {
		_ = st.Done()
		_ = st.Done()
		if e.flags.Has(FlagTest) {
			return "", st.Done()
		}
		if err := e.remove(ctx, a); err != nil {
			return "", fail(PhaseApply, err)
		}
		return "", st.Done()
	}

	if !e.flags.Has(FlagAllowReinstall) && (a.Kind == model.ActionInstall || a.Kind == model.ActionReinstall) {
		has, err := e.db.Has(ctx, a.Package)
		if err != nil {
			return "", fail(PhaseApply, err)
		}
		if has {
			logger.Info("Already installed, skipping", logger.Fields{"package": a.Package.NEVRA()})
			return "", st.Finished()
		}
	}

	file, err := e.download(ctx, a.Package, st.Child())
	if err != nil {
		return "", fail(PhaseDownload, err)
	}
	_ = st.Done()

	if err := e.verify(ctx, a.Package, file); err != nil {
		return file, fail(PhaseVerify, err)
	}
	_ = st.Done()

	if e.flags.Has(FlagTest) {
		return file, st.Done()
	}
	if err := e.install(ctx, a, file); err != nil {
		return file, fail(PhaseApply, err)
	}
	return file, st.Done()
}

func (e *Executor) download(ctx context.Context, p *model.Package, st *state.State) (string, error) {
	repo, ok := e.repos[p.Repo]
	if !ok {
		return "", errors.Wrapf(errors.ErrNotFound, "repository %q of %s", p.Repo, p.NEVRA())
	}
	if p.Location == "" {
		return "", errors.Wrapf(errors.ErrValidation, "%s has no location", p.NEVRA())
	}
	item := download.Item{
		ID:           p.NEVRA(),
		URLs:         repo.URLsFor(p.Location),
		Checksum:     p.Checksum.Value,
		ChecksumType: p.Checksum.Type,
		Filename:     path.Base(p.Location),
		Auth:         repo.Auth,
	}
	return e.dl.Fetch(ctx, item, download.Options{Dir: e.cache.PackageDir(p.Repo), State: st})
}

// verify checks the checksum of a cached file and the package's own identity.
func (e *Executor) verify(ctx context.Context, p *model.Package, file string) error {
	if !p.Checksum.IsZero() {
		ok, err := download.VerifyFile(file, p.Checksum.Type, p.Checksum.Value)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", path.Base(file), errors.ErrFileHashMismatch)
		}
	}
	m, err := e.extractor.ReadManifest(ctx, file)
	if err != nil {
		return err
	}
	if !m.Matches(p) {
		return fmt.Errorf("%w: expected %s, package contains %s", ErrIdentityMismatch, p.NEVRA(), m.NEVRA())
	}
	return nil
}

func (e *Executor) hookContext(a model.Action, staging string) hooks.HookContext {
	hc := hooks.HookContext{
		PackageName:    a.Package.Name,
		PackageVersion: a.Package.EVR.String(),
		PackageArch:    a.Package.Arch,
		NEVRA:          a.Package.NEVRA(),
		Operation:      string(a.Kind),
		InstallRoot:    e.root,
		StagingDir:     staging,
	}
	if a.Replaces != nil {
		hc.OldVersion = a.Replaces.EVR.String()
	}
	return hc
}
