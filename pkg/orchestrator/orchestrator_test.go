package orchestrator_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/hif/pkg/cache"
	mock_cache "github.com/glorpus-work/hif/pkg/cache/mocks"
	"github.com/glorpus-work/hif/pkg/download"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/orchestrator"
	ocmocks "github.com/glorpus-work/hif/pkg/orchestrator/mocks"
	"github.com/glorpus-work/hif/pkg/repository"
	"github.com/glorpus-work/hif/pkg/rpmdb"
	"github.com/glorpus-work/hif/pkg/state"
	"github.com/glorpus-work/hif/pkg/transaction"
	"github.com/glorpus-work/hif/test/testutil"
)

type mocked struct {
	orch  *orchestrator.Orchestrator
	store *ocmocks.MockMetadataStore
	db    *ocmocks.MockInstalledPackages
	exec  *ocmocks.MockPlanRunner
	repo  *repository.Repository
	out   *bytes.Buffer
}

// newMocked wires an orchestrator whose single repository "main" is fresh
// and offers available; installed is what the database reports.
func newMocked(t *testing.T, available, installed []*model.Package) *mocked {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := &mocked{
		store: ocmocks.NewMockMetadataStore(ctrl),
		db:    ocmocks.NewMockInstalledPackages(ctrl),
		exec:  ocmocks.NewMockPlanRunner(ctrl),
		repo:  testutil.Repo(t, "main", "http://example.invalid/main/"),
		out:   &bytes.Buffer{},
	}
	m.orch = &orchestrator.Orchestrator{
		Repos:   []*repository.Repository{m.repo},
		Store:   m.store,
		DB:      m.db,
		Exec:    m.exec,
		LockDir: t.TempDir(),
		Arch:    "x86_64",
		MaxAge:  time.Hour,
		Out:     m.out,
	}
	m.store.EXPECT().Refresh(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, repos []*repository.Repository, opts repository.RefreshOptions, _ *state.State) ([]repository.RefreshResult, error) {
			assert.False(t, opts.Force)
			assert.Equal(t, time.Hour, opts.MaxAge)
			out := make([]repository.RefreshResult, len(repos))
			for i, r := range repos {
				out[i] = repository.RefreshResult{Repo: r, Checked: true, Status: repository.RefreshFresh}
			}
			return out, nil
		}).AnyTimes()
	m.store.EXPECT().Load(m.repo).Return(available, nil).AnyTimes()
	m.db.EXPECT().Installed(gomock.Any()).Return(installed, nil).AnyTimes()
	return m
}

func kinds(plan *model.Plan) []string {
	var out []string
	for _, a := range plan.Actions() {
		out = append(out, string(a.Kind)+" "+a.Package.NEVRA())
	}
	return out
}

func TestPackageVerbsRequireNames(t *testing.T) {
	orch := &orchestrator.Orchestrator{}
	ctx := context.Background()
	verbs := map[string]func(context.Context, []string, orchestrator.Options) (*model.Plan, error){
		"install":   orch.Install,
		"remove":    orch.Remove,
		"update":    orch.Update,
		"reinstall": orch.Reinstall,
	}
	for name, verb := range verbs {
		t.Run(name, func(t *testing.T) {
			_, err := verb(ctx, nil, orchestrator.Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidArguments)
			assert.EqualError(t, err, "Not enough arguments, expected package or group name")
		})
	}
}

func TestInstallPrintsSummaryAndRuns(t *testing.T) {
	bar := testutil.Pkg("bar-1.0-1.noarch")
	foo := testutil.Requires(testutil.Pkg("foo-2.0-1.noarch"), "bar")
	m := newMocked(t, []*model.Package{foo, bar}, nil)

	m.exec.EXPECT().RunWith(gomock.Any(), gomock.Any(), transaction.Flags(0), gomock.Any()).DoAndReturn(
		func(_ context.Context, plan *model.Plan, _ transaction.Flags, _ *state.State) error {
			assert.Equal(t, []string{"install bar-1.0-1.noarch", "install foo-2.0-1.noarch"}, kinds(plan))
			return nil
		})

	var phases []string
	m.orch.Hooks = orchestrator.Hooks{OnEvent: func(e orchestrator.Event) { phases = append(phases, e.Phase) }}

	plan, err := m.orch.Install(context.Background(), []string{"foo"}, orchestrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, plan.Len())
	assert.Equal(t, "Transaction: 2 packages\n"+
		"  bar-1.0-1.noarch (main)\n"+
		"  foo-2.0-1.noarch (main)\n"+
		"Complete.\n", m.out.String())
	assert.Equal(t, []string{orchestrator.PhaseResolving, orchestrator.PhaseRunning, orchestrator.PhaseDone}, phases)
}

func TestInstallTestOption(t *testing.T) {
	m := newMocked(t, []*model.Package{testutil.Pkg("foo-1.0-1.noarch")}, nil)
	m.exec.EXPECT().RunWith(gomock.Any(), gomock.Any(), transaction.FlagTest, gomock.Any()).Return(nil)

	_, err := m.orch.Install(context.Background(), []string{"foo"}, orchestrator.Options{Test: true})
	require.NoError(t, err)
}

func TestInstallAlreadyInstalled(t *testing.T) {
	foo := testutil.Pkg("foo-1.0-1.noarch")
	m := newMocked(t, []*model.Package{foo}, []*model.Package{testutil.Installed(testutil.Pkg("foo-1.0-1.noarch"))})
	m.exec.EXPECT().RunWith(gomock.Any(), gomock.Any(), transaction.Flags(0), gomock.Any()).DoAndReturn(
		func(_ context.Context, plan *model.Plan, _ transaction.Flags, _ *state.State) error {
			assert.True(t, plan.Empty())
			return nil
		})

	_, err := m.orch.Install(context.Background(), []string{"foo"}, orchestrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Transaction: 0 packages\n  (empty)\nComplete.\n", m.out.String())
}

func TestReinstallAllowsReinstall(t *testing.T) {
	m := newMocked(t,
		[]*model.Package{testutil.Pkg("foo-1.0-1.noarch")},
		[]*model.Package{testutil.Installed(testutil.Pkg("foo-1.0-1.noarch"))})
	m.exec.EXPECT().RunWith(gomock.Any(), gomock.Any(), transaction.FlagAllowReinstall, gomock.Any()).DoAndReturn(
		func(_ context.Context, plan *model.Plan, _ transaction.Flags, _ *state.State) error {
			assert.Equal(t, []string{"reinstall foo-1.0-1.noarch"}, kinds(plan))
			return nil
		})

	_, err := m.orch.Reinstall(context.Background(), []string{"foo"}, orchestrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Transaction: 1 packages\n  foo-1.0-1.noarch (main)\nComplete.\n", m.out.String())
}

func TestRemoveCascadesToDependents(t *testing.T) {
	bar := testutil.Installed(testutil.Pkg("bar-1.0-1.noarch"))
	foo := testutil.Installed(testutil.Requires(testutil.Pkg("foo-1.0-1.noarch"), "bar"))
	m := newMocked(t, nil, []*model.Package{foo, bar})
	m.exec.EXPECT().RunWith(gomock.Any(), gomock.Any(), transaction.Flags(0), gomock.Any()).DoAndReturn(
		func(_ context.Context, plan *model.Plan, _ transaction.Flags, _ *state.State) error {
			assert.Equal(t, []string{"remove foo-1.0-1.noarch", "remove bar-1.0-1.noarch"}, kinds(plan))
			return nil
		})

	_, err := m.orch.Remove(context.Background(), []string{"bar"}, orchestrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Transaction: 0 packages\n  (empty)\n"+
		"Removing: 2 packages\n"+
		"  bar-1.0-1.noarch (main)\n"+
		"  foo-1.0-1.noarch (main)\n"+
		"Complete.\n", m.out.String())
}

func TestUpdatePicksNewest(t *testing.T) {
	m := newMocked(t,
		[]*model.Package{testutil.Pkg("foo-1.0-1.noarch"), testutil.Pkg("foo-2.0-1.noarch")},
		[]*model.Package{testutil.Installed(testutil.Pkg("foo-1.0-1.noarch"))})
	m.exec.EXPECT().RunWith(gomock.Any(), gomock.Any(), transaction.Flags(0), gomock.Any()).DoAndReturn(
		func(_ context.Context, plan *model.Plan, _ transaction.Flags, _ *state.State) error {
			require.Equal(t, []string{"update foo-2.0-1.noarch"}, kinds(plan))
			assert.Equal(t, "foo-1.0-1.noarch", plan.Actions()[0].Replaces.NEVRA())
			return nil
		})

	_, err := m.orch.Update(context.Background(), []string{"foo"}, orchestrator.Options{})
	require.NoError(t, err)
}

func TestResolutionErrorsSkipExecution(t *testing.T) {
	foo := testutil.Conflicts(testutil.Pkg("foo-1.0-1.noarch"), "bar")
	bar := testutil.Pkg("bar-1.0-1.noarch")
	m := newMocked(t, []*model.Package{foo, bar}, nil)
	ctx := context.Background()

	_, err := m.orch.Install(ctx, []string{"nope"}, orchestrator.Options{})
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.NotErrorIs(t, err, errors.ErrUnsatisfiable)

	_, err = m.orch.Install(ctx, []string{"foo", "bar"}, orchestrator.Options{})
	assert.ErrorIs(t, err, errors.ErrUnsatisfiable)
	assert.Empty(t, m.out.String(), "nothing is printed without a plan")
}

func TestExecutionFailureIsReturned(t *testing.T) {
	m := newMocked(t, []*model.Package{testutil.Pkg("foo-1.0-1.noarch")}, nil)
	m.exec.EXPECT().RunWith(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, plan *model.Plan, _ transaction.Flags, _ *state.State) error {
			return &transaction.StepError{Index: 0, Action: plan.Actions()[0], Phase: transaction.PhaseApply, Err: os.ErrPermission}
		})

	plan, err := m.orch.Install(context.Background(), []string{"foo"}, orchestrator.Options{})
	assert.ErrorIs(t, err, errors.ErrExecutionFailure)
	assert.NotNil(t, plan)
	assert.NotContains(t, m.out.String(), "Complete.")
}

func TestSetupFailsOnRequiredRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := ocmocks.NewMockMetadataStore(ctrl)
	repo := testutil.Repo(t, "main", "http://example.invalid/")
	repo.SkipIfUnavailable = false
	fetchErr := &repository.FetchError{Repo: "main", Err: os.ErrDeadlineExceeded}
	store.EXPECT().Refresh(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(
		[]repository.RefreshResult{{Repo: repo, Checked: true, Status: repository.RefreshSkipped, Err: fetchErr}}, nil)

	orch := &orchestrator.Orchestrator{
		Repos:   []*repository.Repository{repo},
		Store:   store,
		DB:      ocmocks.NewMockInstalledPackages(ctrl),
		Exec:    ocmocks.NewMockPlanRunner(ctrl),
		LockDir: t.TempDir(),
	}
	_, err := orch.Install(context.Background(), []string{"foo"}, orchestrator.Options{})
	assert.ErrorIs(t, err, errors.ErrFetch)
}

func TestSetupSkipsOptionalRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := ocmocks.NewMockMetadataStore(ctrl)
	db := ocmocks.NewMockInstalledPackages(ctrl)
	exec := ocmocks.NewMockPlanRunner(ctrl)
	mainRepo := testutil.Repo(t, "main", "http://example.invalid/main/")
	extra := testutil.Repo(t, "extra", "http://example.invalid/extra/")
	extra.Order = 1

	store.EXPECT().Refresh(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]repository.RefreshResult{
		{Repo: mainRepo, Checked: true, Status: repository.RefreshFresh},
		{Repo: extra, Checked: true, Status: repository.RefreshSkipped, Err: &repository.FetchError{Repo: "extra", Err: os.ErrDeadlineExceeded}},
	}, nil)
	store.EXPECT().Load(main).Return([]*model.Package{testutil.Pkg("foo-1.0-1.noarch")}, nil)
	store.EXPECT().Load(extra).Return(nil, repository.ErrNoMetadata)
	db.EXPECT().Installed(gomock.Any()).Return(nil, nil)
	exec.EXPECT().RunWith(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	orch := &orchestrator.Orchestrator{
		Repos:   []*repository.Repository{mainRepo, extra},
		Store:   store,
		DB:      db,
		Exec:    exec,
		LockDir: t.TempDir(),
	}
	_, err := orch.Install(context.Background(), []string{"foo"}, orchestrator.Options{})
	require.NoError(t, err)
}

func TestVerbHoldsLock(t *testing.T) {
	m := newMocked(t, []*model.Package{testutil.Pkg("foo-1.0-1.noarch")}, nil)
	m.exec.EXPECT().RunWith(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *model.Plan, _ transaction.Flags, _ *state.State) error {
			_, err := m.orch.Refresh(ctx, false)
			assert.ErrorIs(t, err, errors.ErrLocked)
			return nil
		})

	_, err := m.orch.Install(context.Background(), []string{"foo"}, orchestrator.Options{})
	require.NoError(t, err)
}

type events struct {
	mu   sync.Mutex
	list []orchestrator.Event
}

func (e *events) add(ev orchestrator.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, ev)
}

func (e *events) messages(phase, prefix string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.list {
		if ev.Phase == phase && strings.HasPrefix(ev.Msg, prefix) {
			out = append(out, ev.Msg)
		}
	}
	return out
}

// system is an orchestrator backed by real components.
type system struct {
	orch   *orchestrator.Orchestrator
	store  *repository.Store
	cache  *cache.DefaultManager
	db     *rpmdb.DB
	root   string
	base   string
	out    *bytes.Buffer
	events *events
}

func newSystem(t *testing.T, repos ...*repository.Repository) *system {
	t.Helper()
	base := t.TempDir()
	s := &system{
		base:   base,
		root:   filepath.Join(base, "root"),
		out:    &bytes.Buffer{},
		events: &events{},
	}
	dl := download.NewManager(5*time.Second, "hif-test")
	s.store = repository.NewStore(filepath.Join(base, "metadata"), filepath.Join(base, "solv"), dl)
	s.cache = cache.NewManager(filepath.Join(base, "metadata"), filepath.Join(base, "solv"), filepath.Join(base, "packages"))
	db, err := rpmdb.Open(rpmdb.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s.db = db
	work := filepath.Join(base, "work")
	require.NoError(t, os.MkdirAll(work, 0o755))
	require.NoError(t, os.MkdirAll(s.root, 0o755))

	s.orch = &orchestrator.Orchestrator{
		Repos:       repos,
		Store:       s.store,
		DB:          db,
		Exec:        transaction.New(db, dl, s.cache, s.root, transaction.WithRepositories(repos), transaction.WithWorkDir(work)),
		Cache:       s.cache,
		LockDir:     filepath.Join(base, "lock"),
		Arch:        "x86_64",
		MaxAge:      time.Hour,
		Concurrency: 3,
		Out:         s.out,
		Hooks:       orchestrator.Hooks{OnEvent: s.events.add},
	}
	return s
}

func TestRefreshWithOneUnreachableRepository(t *testing.T) {
	dirA, dirC := t.TempDir(), t.TempDir()
	testutil.WriteRPMMD(t, dirA, "1", []*model.Package{testutil.Pkg("foo-1.0-1.noarch@a")}, "gz")
	testutil.WriteRPMMD(t, dirC, "1", []*model.Package{testutil.Pkg("bar-1.0-1.noarch@c")}, "xz")
	srvA := testutil.NewSlowRepoServer(t, dirA, 200*time.Millisecond)
	srvC := testutil.NewRepoServer(t, dirC)
	down := testutil.NewUnavailableServer(t)

	a := testutil.Repo(t, "a", srvA.URL+"/")
	b := testutil.Repo(t, "b", down.URL+"/")
	b.Order = 1
	c := testutil.Repo(t, "c", srvC.URL+"/")
	c.Order = 2
	s := newSystem(t, a, b, c)

	results, err := s.orch.Refresh(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, repository.RefreshUpdated, results[0].Status)
	assert.Equal(t, repository.RefreshSkipped, results[1].Status)
	assert.Equal(t, repository.RefreshUpdated, results[2].Status)

	counts := repository.Counts(results)
	assert.Equal(t, 2, counts[repository.RefreshUpdated])
	assert.Equal(t, 1, counts[repository.RefreshSkipped])
	assert.Equal(t, []string{"Checking a", "Checking b", "Checking c"}, s.events.messages(orchestrator.PhaseRefresh, "Checking "))
	assert.Equal(t, []string{"Updating a", "Updating b", "Updating c"}, s.events.messages(orchestrator.PhaseRefresh, "Updating "))
	assert.Len(t, s.events.messages(orchestrator.PhaseRefresh, "Skipping repo: "), 1)

	results, err = s.orch.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, repository.RefreshFresh, results[0].Status)
	assert.Equal(t, repository.RefreshFresh, results[2].Status)

	hits := srvA.Hits()
	results, err = s.orch.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, repository.RefreshUpdated, results[0].Status)
	assert.Greater(t, srvA.Hits(), hits, "force downloads fresh repositories")
}

func TestUpdateRepo(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteRPMMD(t, dir, "1", []*model.Package{testutil.Pkg("foo-1.0-1.noarch")}, "")
	srv := testutil.NewRepoServer(t, dir)
	down := testutil.NewUnavailableServer(t)
	mainRepo := testutil.Repo(t, "main", srv.URL+"/")
	broken := testutil.Repo(t, "broken", down.URL+"/")
	s := newSystem(t, mainRepo, broken)
	ctx := context.Background()

	require.NoError(t, s.orch.UpdateRepo(ctx, "main"))
	assert.FileExists(t, s.store.SolvPath(main))

	err := s.orch.UpdateRepo(ctx, "broken")
	assert.ErrorIs(t, err, errors.ErrFetch, "a single repository update treats fetch errors as fatal")

	err = s.orch.UpdateRepo(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestInstallAndRemoveEndToEnd(t *testing.T) {
	repoDir := t.TempDir()
	bar := testutil.BuildPackage(t, repoDir, testutil.Pkg("bar-1.0-1.noarch"), map[string]string{"/usr/lib/libbar.so": "bar"}, nil)
	foo := testutil.BuildPackage(t, repoDir, testutil.Requires(testutil.Pkg("foo-1.0-1.noarch"), "bar"), map[string]string{"/usr/bin/foo": "foo"}, nil)
	testutil.WriteRPMMD(t, repoDir, "1", []*model.Package{foo, bar}, "gz")
	srv := testutil.NewRepoServer(t, repoDir)
	s := newSystem(t, testutil.Repo(t, "main", srv.URL+"/"))
	ctx := context.Background()

	_, err := s.orch.Install(ctx, []string{"foo"}, orchestrator.Options{})
	require.NoError(t, err)
	out := s.out.String()
	assert.True(t, strings.HasPrefix(out, "Transaction: 2 packages\n  bar-1.0-1.noarch (main)\n  foo-1.0-1.noarch (main)\n"), out)
	assert.True(t, strings.HasSuffix(out, "Complete.\n"), out)
	assert.Equal(t, []string{"Checking main"}, s.events.messages(orchestrator.PhaseSetup, "Checking "))
	assert.FileExists(t, filepath.Join(s.root, "usr", "bin", "foo"))
	assert.FileExists(t, filepath.Join(s.root, "usr", "lib", "libbar.so"))

	installed, err := s.db.Installed(ctx)
	require.NoError(t, err)
	require.Len(t, installed, 2)
	assert.Equal(t, model.ReasonDependency, installed[0].Reason)
	assert.Equal(t, model.ReasonUser, installed[1].Reason)

	s.out.Reset()
	_, err = s.orch.Remove(ctx, []string{"bar"}, orchestrator.Options{})
	require.NoError(t, err)
	assert.Contains(t, s.out.String(), "Removing: 2 packages\n")
	assert.NoFileExists(t, filepath.Join(s.root, "usr", "bin", "foo"))
	assert.NoFileExists(t, filepath.Join(s.root, "usr", "lib", "libbar.so"))
	installed, err = s.db.Installed(ctx)
	require.NoError(t, err)
	assert.Empty(t, installed)
}

func TestCleanRemovesCaches(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteRPMMD(t, dir, "1", []*model.Package{testutil.Pkg("foo-1.0-1.noarch")}, "")
	srv := testutil.NewRepoServer(t, dir)
	mainRepo := testutil.Repo(t, "main", srv.URL+"/")
	s := newSystem(t, mainRepo)
	ctx := context.Background()

	require.NoError(t, s.orch.UpdateRepo(ctx, "main"))
	pkgFile := filepath.Join(s.cache.PackageDir("main"), "foo.rpm")
	require.NoError(t, os.MkdirAll(filepath.Dir(pkgFile), 0o755))
	require.NoError(t, os.WriteFile(pkgFile, []byte("0123456789"), 0o644))

	res, err := s.orch.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.PackageFreed)
	assert.Positive(t, res.MetadataFreed)
	assert.Equal(t, res.MetadataFreed+res.PackageFreed, res.TotalFreed)
	assert.NoDirExists(t, s.store.MetadataPath(main))
	assert.NoFileExists(t, s.store.SolvPath(main))
	assert.NoFileExists(t, pkgFile)

	res, err = s.orch.Clean(ctx)
	require.NoError(t, err, "cleaning an empty cache succeeds")
	assert.Zero(t, res.TotalFreed)
}

func TestConcurrentCleanIsLocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := ocmocks.NewMockMetadataStore(ctrl)
	base := t.TempDir()
	repo := testutil.Repo(t, "main", "http://example.invalid/")
	orch := &orchestrator.Orchestrator{
		Repos:   []*repository.Repository{repo},
		Store:   store,
		Cache:   cache.NewManager(filepath.Join(base, "metadata"), filepath.Join(base, "solv"), filepath.Join(base, "packages")),
		LockDir: filepath.Join(base, "lock"),
	}

	var second error
	store.EXPECT().Clean(repo).DoAndReturn(func(*repository.Repository) error {
		_, second = orch.Clean(context.Background())
		return nil
	})

	_, first := orch.Clean(context.Background())
	require.NoError(t, first)
	require.Error(t, second)
	assert.ErrorIs(t, second, errors.ErrLocked)
	assert.Equal(t, "Locked", errors.Class(second))
}

func TestCleanReportsMetadataAndPackages(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := ocmocks.NewMockMetadataStore(ctrl)
	cacheMgr := mock_cache.NewMockManager(ctrl)
	a := testutil.Repo(t, "a", "http://example.invalid/a/")
	b := testutil.Repo(t, "b", "http://example.invalid/b/")
	b.Enabled = false
	orch := &orchestrator.Orchestrator{
		Repos:   []*repository.Repository{a, b},
		Store:   store,
		Cache:   cacheMgr,
		LockDir: t.TempDir(),
	}

	gomock.InOrder(
		cacheMgr.EXPECT().GetInfo().Return(&cache.Info{MetadataSize: 100, PackageSize: 10}, nil),
		store.EXPECT().Clean(a).Return(nil),
		store.EXPECT().Clean(b).Return(nil),
		cacheMgr.EXPECT().Clean(cache.CleanOptions{Packages: true}).Return(&cache.CleanResult{PackageFreed: 10, TotalFreed: 10}, nil),
		cacheMgr.EXPECT().GetInfo().Return(&cache.Info{MetadataSize: 40}, nil),
	)

	res, err := orch.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cache.CleanResult{MetadataFreed: 60, PackageFreed: 10, TotalFreed: 70}, *res)
}

func TestCleanStopsOnStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := ocmocks.NewMockMetadataStore(ctrl)
	cacheMgr := mock_cache.NewMockManager(ctrl)
	repo := testutil.Repo(t, "main", "http://example.invalid/")
	orch := &orchestrator.Orchestrator{
		Repos:   []*repository.Repository{repo},
		Store:   store,
		Cache:   cacheMgr,
		LockDir: t.TempDir(),
	}
	boom := errors.New("permission denied")
	cacheMgr.EXPECT().GetInfo().Return(&cache.Info{}, nil)
	store.EXPECT().Clean(repo).Return(boom)

	_, err := orch.Clean(context.Background())
	assert.ErrorIs(t, err, boom)
}
