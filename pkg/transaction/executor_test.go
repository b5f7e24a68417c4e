package transaction_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/cache"
	"github.com/glorpus-work/hif/pkg/download"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/hooks"
	mock_hooks "github.com/glorpus-work/hif/pkg/hooks/mocks"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/repository"
	"github.com/glorpus-work/hif/pkg/rpmdb"
	"github.com/glorpus-work/hif/pkg/state"
	"github.com/glorpus-work/hif/pkg/transaction"
	mock_transaction "github.com/glorpus-work/hif/pkg/transaction/mocks"
	"github.com/glorpus-work/hif/test/testutil"
)

type fixture struct {
	root    string
	repoDir string
	srv     *testutil.RepoServer
	repo    *repository.Repository
	db      *rpmdb.DB
	cache   *cache.DefaultManager
	dl      download.Manager
	workDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		root:    filepath.Join(base, "root"),
		repoDir: filepath.Join(base, "repo"),
		workDir: filepath.Join(base, "work"),
		dl:      download.NewManager(5*time.Second, "hif-test"),
	}
	require.NoError(t, os.MkdirAll(f.root, 0o755))
	require.NoError(t, os.MkdirAll(f.repoDir, 0o755))
	require.NoError(t, os.MkdirAll(f.workDir, 0o755))
	f.srv = testutil.NewRepoServer(t, f.repoDir)
	f.repo = testutil.Repo(t, "main", f.srv.URL+"/")
	f.cache = cache.NewManager(filepath.Join(base, "metadata"), filepath.Join(base, "solv"), filepath.Join(base, "packages"))

	db, err := rpmdb.Open(rpmdb.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	f.db = db
	return f
}

func (f *fixture) executor(opts ...transaction.Option) *transaction.Executor {
	opts = append([]transaction.Option{
		transaction.WithRepositories([]*repository.Repository{f.repo}),
		transaction.WithWorkDir(f.workDir),
	}, opts...)
	return transaction.New(f.db, f.dl, f.cache, f.root, opts...)
}

func (f *fixture) build(t *testing.T, spec string, data map[string]string, scripts hooks.Set) *model.Package {
	t.Helper()
	return testutil.BuildPackage(t, f.repoDir, testutil.Pkg(spec), data, scripts)
}

func (f *fixture) cached(p *model.Package) string {
	return filepath.Join(f.cache.PackageDir(p.Repo), filepath.Base(p.Location))
}

func (f *fixture) installedNEVRAs(t *testing.T) []string {
	t.Helper()
	pkgs, err := f.db.Installed(context.Background())
	require.NoError(t, err)
	out := []string{}
	for _, p := range pkgs {
		out = append(out, p.NEVRA())
	}
	return out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func install(p *model.Package, reason model.InstallationReason) model.Action {
	return model.Action{Kind: model.ActionInstall, Package: p, Reason: reason}
}

type progress struct {
	mu     sync.Mutex
	values []int
}

func (p *progress) report(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, v)
}

func TestRunInstallsInOrder(t *testing.T) {
	f := newFixture(t)
	bar := f.build(t, "bar-1.0-1.noarch", map[string]string{"/usr/lib/libbar.so": "bar"}, nil)
	foo := f.build(t, "foo-2.0-1.noarch", map[string]string{"/usr/bin/foo": "foo"}, hooks.Set{
		hooks.PostInstall: `
			os := import("os")
			f := os.create(installRoot + "/" + packageName + "." + operation)
			f.write_string(nevra)
			f.close()
		`,
	})

	plan := model.NewPlan([]model.Action{
		install(bar, model.ReasonDependency),
		install(foo, model.ReasonUser),
	})
	prog := &progress{}
	require.NoError(t, f.executor().Run(context.Background(), plan, state.New(prog.report)))

	assert.Equal(t, "bar", readFile(t, filepath.Join(f.root, "usr", "lib", "libbar.so")))
	assert.Equal(t, "foo", readFile(t, filepath.Join(f.root, "usr", "bin", "foo")))
	assert.Equal(t, "foo-2.0-1.noarch", readFile(t, filepath.Join(f.root, "foo.install")))

	pkgs, err := f.db.Installed(context.Background())
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "bar-1.0-1.noarch", pkgs[0].NEVRA())
	assert.Equal(t, model.ReasonDependency, pkgs[0].Reason)
	assert.Equal(t, []string{"/usr/lib/libbar.so"}, pkgs[0].Files)
	assert.Equal(t, model.ReasonUser, pkgs[1].Reason)

	scripts, err := f.db.Scriptlets(context.Background(), foo.NEVRA())
	require.NoError(t, err)
	assert.Contains(t, scripts, "post-install")

	assert.NoFileExists(t, f.cached(foo), "downloaded packages are dropped without keep-cache")

	require.NotEmpty(t, prog.values)
	assert.Equal(t, 100, prog.values[len(prog.values)-1])
	for i := 1; i < len(prog.values); i++ {
		assert.GreaterOrEqual(t, prog.values[i], prog.values[i-1])
	}
}

func TestRunKeepCache(t *testing.T) {
	f := newFixture(t)
	foo := f.build(t, "foo-1.0-1.noarch", map[string]string{"/usr/bin/foo": "foo"}, nil)

	exec := f.executor(transaction.WithFlags(transaction.FlagKeepCache))
	require.NoError(t, exec.Run(context.Background(), model.NewPlan([]model.Action{install(foo, model.ReasonUser)}), nil))
	assert.FileExists(t, f.cached(foo))
	assert.True(t, exec.Flags().Has(transaction.FlagKeepCache))
	assert.False(t, exec.Flags().Has(transaction.FlagTest))
}

func TestRunTestFlagOnlyDownloads(t *testing.T) {
	f := newFixture(t)
	foo := f.build(t, "foo-1.0-1.noarch", map[string]string{"/usr/bin/foo": "foo"}, nil)

	exec := f.executor().Using(transaction.FlagTest)
	require.NoError(t, exec.Run(context.Background(), model.NewPlan([]model.Action{install(foo, model.ReasonUser)}), nil))

	assert.NoFileExists(t, filepath.Join(f.root, "usr", "bin", "foo"))
	assert.Empty(t, f.installedNEVRAs(t))
	assert.FileExists(t, f.cached(foo))
}

func TestRunUpdateReplacesFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v1 := f.build(t, "foo-1.0-1.noarch", map[string]string{
		"/usr/bin/foo":          "v1",
		"/usr/share/foo/legacy": "old",
	}, nil)
	v2 := f.build(t, "foo-2.0-1.noarch", map[string]string{
		"/usr/bin/foo":       "v2",
		"/usr/share/foo/new": "new",
	}, nil)

	exec := f.executor()
	require.NoError(t, exec.Run(ctx, model.NewPlan([]model.Action{install(v1, model.ReasonUser)}), nil))
	installed, err := f.db.Find(ctx, "foo")
	require.NoError(t, err)
	require.Len(t, installed, 1)

	plan := model.NewPlan([]model.Action{{Kind: model.ActionUpdate, Package: v2, Replaces: installed[0], Reason: model.ReasonUser}})
	require.NoError(t, exec.Run(ctx, plan, nil))

	assert.Equal(t, "v2", readFile(t, filepath.Join(f.root, "usr", "bin", "foo")))
	assert.Equal(t, "new", readFile(t, filepath.Join(f.root, "usr", "share", "foo", "new")))
	assert.NoFileExists(t, filepath.Join(f.root, "usr", "share", "foo", "legacy"))
	assert.Equal(t, []string{"foo-2.0-1.noarch"}, f.installedNEVRAs(t))
}

func TestRunRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	foo := f.build(t, "foo-1.0-1.noarch", map[string]string{
		"/usr/bin/foo":          "foo",
		"/usr/share/foo/a/data": "data",
		"/etc/shared.conf":      "shared",
	}, hooks.Set{hooks.PreRemove: `
		os := import("os")
		f := os.create(installRoot + "/removing-" + packageName)
		f.close()
	`})
	other := f.build(t, "other-1.0-1.noarch", map[string]string{"/etc/shared.conf": "shared"}, nil)

	exec := f.executor()
	require.NoError(t, exec.Run(ctx, model.NewPlan([]model.Action{
		install(foo, model.ReasonUser),
		install(other, model.ReasonUser),
	}), nil))

	installed, err := f.db.Find(ctx, "foo")
	require.NoError(t, err)
	require.Len(t, installed, 1)

	require.NoError(t, exec.Run(ctx, model.NewPlan([]model.Action{{Kind: model.ActionRemove, Package: installed[0]}}), nil))

	assert.NoFileExists(t, filepath.Join(f.root, "usr", "bin", "foo"))
	assert.NoDirExists(t, filepath.Join(f.root, "usr", "share", "foo"), "emptied directories are pruned")
	assert.FileExists(t, filepath.Join(f.root, "etc", "shared.conf"), "files still owned by another package stay")
	assert.FileExists(t, filepath.Join(f.root, "removing-foo"))
	assert.Equal(t, []string{"other-1.0-1.noarch"}, f.installedNEVRAs(t))
}

func TestRunPartialFailure(t *testing.T) {
	f := newFixture(t)
	a := f.build(t, "a-1.0-1.noarch", map[string]string{"/a": "a"}, nil)
	b := f.build(t, "b-1.0-1.noarch", map[string]string{"/b": "b"}, nil)
	c := f.build(t, "c-1.0-1.noarch", map[string]string{"/c": "c"}, nil)
	b.Checksum.Value = "0000000000000000000000000000000000000000000000000000000000000000"

	plan := model.NewPlan([]model.Action{
		install(a, model.ReasonUser),
		install(b, model.ReasonUser),
		install(c, model.ReasonUser),
	})
	err := f.executor().Run(context.Background(), plan, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExecutionFailure)

	var stepErr *transaction.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, transaction.PhaseDownload, stepErr.Phase)
	assert.Equal(t, "b-1.0-1.noarch", stepErr.Action.Package.NEVRA())
	assert.Contains(t, err.Error(), "step 2 (install b-1.0-1.noarch) failed during download")

	assert.Equal(t, []string{"a-1.0-1.noarch"}, f.installedNEVRAs(t), "earlier steps stay applied")
	assert.FileExists(t, filepath.Join(f.root, "a"))
	assert.NoFileExists(t, filepath.Join(f.root, "b"))
	assert.NoFileExists(t, filepath.Join(f.root, "c"))
}

func TestRunIdentityMismatch(t *testing.T) {
	f := newFixture(t)
	built := f.build(t, "foo-1.0-1.noarch", map[string]string{"/foo": "foo"}, nil)
	planned := testutil.Pkg("foo-1.0-2.noarch")
	planned.Location = built.Location
	planned.Checksum = built.Checksum

	err := f.executor().Run(context.Background(), model.NewPlan([]model.Action{install(planned, model.ReasonUser)}), nil)
	var stepErr *transaction.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, transaction.PhaseVerify, stepErr.Phase)
	assert.ErrorIs(t, err, transaction.ErrIdentityMismatch)
	assert.Empty(t, f.installedNEVRAs(t))
}

func TestRunPreInstallHookFailure(t *testing.T) {
	f := newFixture(t)
	foo := f.build(t, "foo-1.0-1.noarch", map[string]string{"/usr/bin/foo": "foo"}, hooks.Set{
		hooks.PreInstall: `err := "refusing to install"`,
	})

	err := f.executor().Run(context.Background(), model.NewPlan([]model.Action{install(foo, model.ReasonUser)}), nil)
	var stepErr *transaction.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, transaction.PhaseApply, stepErr.Phase)
	assert.ErrorIs(t, err, hooks.ErrHookScript)
	assert.NoFileExists(t, filepath.Join(f.root, "usr", "bin", "foo"))
	assert.Empty(t, f.installedNEVRAs(t))
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	logger.SetTestOutput(buf)
	logger.InitLogger("warn", true)
	t.Cleanup(func() {
		logger.UnsetTestOutput()
		logger.InitLogger("info", true)
	})
	return buf
}

func TestRunScriptletOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	foo := f.build(t, "foo-1.0-1.noarch", map[string]string{"/usr/bin/foo": "foo"}, nil)
	target := filepath.Join(f.root, "usr", "bin", "foo")
	log := captureLog(t)

	ctrl := gomock.NewController(t)
	runner := mock_hooks.NewMockRunner(ctrl)
	expectHook := func(typ hooks.HookType, present bool, err error) *gomock.Call {
		return runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, hook hooks.Hook, hc hooks.HookContext) error {
				assert.Equal(t, typ, hook.Type)
				assert.Equal(t, "foo-1.0-1.noarch", hc.NEVRA)
				assert.Equal(t, f.root, hc.InstallRoot)
				if present {
					assert.FileExists(t, target, "%s runs with the files in place", typ)
				} else {
					assert.NoFileExists(t, target, "%s runs without the files", typ)
				}
				return err
			})
	}
	gomock.InOrder(
		expectHook(hooks.PreInstall, false, nil),
		expectHook(hooks.PostInstall, true, errors.New("post-install exploded")),
		expectHook(hooks.PreRemove, true, nil),
		expectHook(hooks.PostRemove, false, errors.New("post-remove exploded")),
	)
	exec := f.executor(transaction.WithHooks(runner))

	require.NoError(t, exec.Run(ctx, model.NewPlan([]model.Action{install(foo, model.ReasonUser)}), nil),
		"a failing post-install scriptlet does not fail the step")
	assert.Equal(t, []string{"foo-1.0-1.noarch"}, f.installedNEVRAs(t))
	assert.Contains(t, log.String(), "post-install hook failed")

	installed, err := f.db.Find(ctx, "foo")
	require.NoError(t, err)
	require.Len(t, installed, 1)
	require.NoError(t, exec.Run(ctx, model.NewPlan([]model.Action{{Kind: model.ActionRemove, Package: installed[0]}}), nil))
	assert.Empty(t, f.installedNEVRAs(t))
	assert.Contains(t, log.String(), "post-remove hook failed")
}

func TestRunRestoresFilesWhenRecordingFails(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	db := mock_transaction.NewMockDatabase(ctrl)

	conf := filepath.Join(f.root, "etc", "foo.conf")
	require.NoError(t, os.MkdirAll(filepath.Dir(conf), 0o755))
	require.NoError(t, os.WriteFile(conf, []byte("local"), 0o644))

	foo := f.build(t, "foo-1.0-1.noarch", map[string]string{
		"/etc/foo.conf": "packaged",
		"/usr/bin/foo":  "foo",
	}, nil)

	db.EXPECT().Has(gomock.Any(), foo).Return(false, nil)
	db.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Nil()).Return(errors.New("disk I/O error"))

	exec := transaction.New(db, f.dl, f.cache, f.root,
		transaction.WithRepositories([]*repository.Repository{f.repo}),
		transaction.WithWorkDir(f.workDir))
	err := exec.Run(context.Background(), model.NewPlan([]model.Action{install(foo, model.ReasonUser)}), nil)
	require.ErrorIs(t, err, errors.ErrExecutionFailure)

	assert.Equal(t, "local", readFile(t, conf), "overwritten files are restored")
	assert.NoFileExists(t, filepath.Join(f.root, "usr", "bin", "foo"))
	assert.NoDirExists(t, filepath.Join(f.root, "usr"))
}

func TestRunSkipsInstalledBuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	foo := f.build(t, "foo-1.0-1.noarch", map[string]string{"/usr/bin/foo": "foo"}, nil)
	plan := model.NewPlan([]model.Action{install(foo, model.ReasonUser)})

	exec := f.executor()
	require.NoError(t, exec.Run(ctx, plan, nil))
	hits := f.srv.Hits()

	require.NoError(t, os.Remove(filepath.Join(f.root, "usr", "bin", "foo")))
	require.NoError(t, exec.Run(ctx, plan, nil))
	assert.Equal(t, hits, f.srv.Hits(), "an installed build is not fetched again")
	assert.NoFileExists(t, filepath.Join(f.root, "usr", "bin", "foo"))

	reinstall := model.NewPlan([]model.Action{{Kind: model.ActionReinstall, Package: foo, Replaces: foo, Reason: model.ReasonUser}})
	require.NoError(t, exec.RunWith(ctx, reinstall, transaction.FlagAllowReinstall, nil))
	assert.Greater(t, f.srv.Hits(), hits)
	assert.FileExists(t, filepath.Join(f.root, "usr", "bin", "foo"))
	assert.Equal(t, []string{"foo-1.0-1.noarch"}, f.installedNEVRAs(t))
}

func TestRunUnknownRepository(t *testing.T) {
	f := newFixture(t)
	foo := f.build(t, "foo-1.0-1.noarch@elsewhere", map[string]string{"/foo": "foo"}, nil)
	err := f.executor().Run(context.Background(), model.NewPlan([]model.Action{install(foo, model.ReasonUser)}), nil)
	var stepErr *transaction.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, transaction.PhaseDownload, stepErr.Phase)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t)
	foo := f.build(t, "foo-1.0-1.noarch", map[string]string{"/foo": "foo"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.executor().Run(ctx, model.NewPlan([]model.Action{install(foo, model.ReasonUser)}), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.srv.Hits())
	assert.Empty(t, f.installedNEVRAs(t))
}

func TestRunEmptyPlan(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.executor().Run(context.Background(), model.NewPlan(nil), nil))
	assert.NoError(t, f.executor().Run(context.Background(), nil, nil))
}
