package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/download"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/fsutil"
	"github.com/glorpus-work/hif/pkg/model"
	"github.com/glorpus-work/hif/pkg/state"
)

// Store owns the metadata cache (one directory per repository below
// metadataDir) and the solver cache (one file per repository in solvDir).
type Store struct {
	metadataDir string
	solvDir     string
	dl          download.Manager
	backends    map[string]Backend
	now         func() time.Time
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithBackend registers or replaces the backend for a repository kind.
func WithBackend(kind string, b Backend) StoreOption {
	return func(s *Store) { s.backends[kind] = b }
}

// WithClock sets the time source used for staleness checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a metadata store.
func NewStore(metadataDir, solvDir string, dl download.Manager, opts ...StoreOption) *Store {
	s := &Store{
		metadataDir: metadataDir,
		solvDir:     solvDir,
		dl:          dl,
		backends:    DefaultBackends(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateOptions control Update.
type UpdateOptions struct {
	// Force downloads all metadata even when the remote revision is unchanged.
	Force bool
}

// MetadataPath returns the cache directory of repo.
func (s *Store) MetadataPath(repo *Repository) string {
	return filepath.Join(s.metadataDir, repo.ID)
}

// SolvPath returns the solver cache file of repo.
func (s *Store) SolvPath(repo *Repository) string {
	return filepath.Join(s.solvDir, repo.ID+".solv.gz")
}

func (s *Store) backend(repo *Repository) (Backend, error) {
	b, ok := s.backends[repo.Kind]
	if !ok {
		return nil, fmt.Errorf("repository %s: %w %q", repo.ID, ErrUnknownKind, repo.Kind)
	}
	return b, nil
}

func (s *Store) markerPath(repo *Repository, b Backend) string {
	return filepath.Join(s.MetadataPath(repo), filepath.FromSlash(b.Marker()))
}

// Check reports whether the cached metadata of repo is younger than maxAge.
// Missing or old metadata is a normal outcome, not an error. A negative
// maxAge never expires.
func (s *Store) Check(ctx context.Context, repo *Repository, maxAge time.Duration, st *state.State) (Freshness, error) {
	if err := ctx.Err(); err != nil {
		return Freshness{}, err
	}
	if st == nil {
		st = state.New(nil)
	}
	defer func() { _ = st.Finished() }()

	b, err := s.backend(repo)
	if err != nil {
		return Freshness{}, err
	}
	info, err := os.Stat(s.markerPath(repo, b))
	if os.IsNotExist(err) {
		return Freshness{Reason: "metadata not present"}, nil
	}
	if err != nil {
		return Freshness{}, errors.Wrapf(err, "check %s", repo.ID)
	}
	age := s.now().Sub(info.ModTime())
	if age < 0 {
		age = 0
	}
	if _, err := os.Stat(s.SolvPath(repo)); err != nil {
		return Freshness{Age: age, Reason: "solver cache missing"}, nil
	}
	if maxAge >= 0 && age > maxAge {
		return Freshness{
			Age:    age,
			Reason: fmt.Sprintf("cache too old: %s > %s", age.Truncate(time.Second), maxAge),
		}, nil
	}
	return Freshness{Fresh: true, Age: age}, nil
}

// Update downloads fresh metadata for repo into a temporary directory,
// validates it and swaps it into place together with a new solver cache.
// Problems with the remote side are returned as *FetchError; the existing
// cache is left untouched in that case.
func (s *Store) Update(ctx context.Context, repo *Repository, opts UpdateOptions, st *state.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st == nil {
		st = state.New(nil)
	}
	b, err := s.backend(repo)
	if err != nil {
		return err
	}
	if len(repo.BaseURLs) == 0 {
		return &FetchError{Repo: repo.ID, Err: fmt.Errorf("no baseurl configured")}
	}
	if err := st.SetSteps(10, 60, 30); err != nil {
		return err
	}
	if err := fsutil.EnsureDir(s.metadataDir); err != nil {
		return errors.Wrap(err, "create metadata dir")
	}
	tmp, err := os.MkdirTemp(s.metadataDir, "."+repo.ID+"-")
	if err != nil {
		return errors.Wrap(err, "create staging dir")
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	_, err = s.dl.Fetch(ctx, download.Item{
		ID:       repo.ID,
		URLs:     repo.URLsFor(b.Marker()),
		Filename: b.Marker(),
		Auth:     repo.Auth,
	}, download.Options{Dir: tmp, State: st.Child()})
	if err != nil {
		return s.fetchFailure(ctx, repo, err)
	}
	_ = st.Done()

	revision, err := b.Revision(filepath.Join(tmp, filepath.FromSlash(b.Marker())))
	if err != nil {
		return &FetchError{Repo: repo.ID, Err: err}
	}
	if !opts.Force && revision != "" && s.unchanged(repo, b, revision) {
		logger.Debug("metadata unchanged", logger.Fields{"repo": repo.ID, "revision": revision})
		_ = fsutil.Touch(s.markerPath(repo, b))
		_ = fsutil.Touch(s.SolvPath(repo))
		return st.Finished()
	}

	if err := b.FetchData(ctx, s.dl, repo, tmp, st.Child()); err != nil {
		return s.fetchFailure(ctx, repo, err)
	}
	_ = st.Done()

	pkgs, err := b.Parse(tmp, repo)
	if err != nil {
		return &FetchError{Repo: repo.ID, Err: err}
	}
	if err := s.swap(repo, tmp); err != nil {
		return err
	}
	if err := fsutil.Touch(s.markerPath(repo, b)); err != nil {
		return errors.Wrapf(err, "stamp metadata of %s", repo.ID)
	}
	if err := writeSolv(s.SolvPath(repo), repo.ID, revision, pkgs); err != nil {
		return err
	}
	logger.Debug("metadata updated", logger.Fields{"repo": repo.ID, "packages": len(pkgs), "revision": revision})
	return st.Done()
}

func (s *Store) fetchFailure(ctx context.Context, repo *Repository, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &FetchError{Repo: repo.ID, Err: err}
}

func (s *Store) unchanged(repo *Repository, b Backend, revision string) bool {
	if _, err := os.Stat(s.SolvPath(repo)); err != nil {
		return false
	}
	old, err := b.Revision(s.markerPath(repo, b))
	return err == nil && old == revision
}

// swap replaces the cached metadata directory of repo with staged.
func (s *Store) swap(repo *Repository, staged string) error {
	dest := s.MetadataPath(repo)
	old := dest + ".old"
	_ = os.RemoveAll(old)
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, old); err != nil {
			return errors.Wrapf(err, "retire metadata of %s", repo.ID)
		}
	}
	if err := os.Rename(staged, dest); err != nil {
		_ = os.Rename(old, dest)
		return errors.Wrapf(err, "install metadata of %s", repo.ID)
	}
	_ = os.RemoveAll(old)
	return nil
}

// Clean removes the metadata and solver cache of repo. Cleaning a repository
// with nothing cached succeeds.
func (s *Store) Clean(repo *Repository) error {
	dest := s.MetadataPath(repo)
	if err := os.RemoveAll(dest); err != nil {
		return errors.Wrapf(err, "remove metadata of %s", repo.ID)
	}
	_ = os.RemoveAll(dest + ".old")
	staged, _ := filepath.Glob(filepath.Join(s.metadataDir, "."+repo.ID+"-*"))
	for _, dir := range staged {
		_ = os.RemoveAll(dir)
	}
	if err := os.Remove(s.SolvPath(repo)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove solver cache of %s", repo.ID)
	}
	return nil
}

// Load returns the packages of repo from its solver cache, rebuilding the
// cache from metadata when it is missing, unreadable or older than the
// metadata.
func (s *Store) Load(repo *Repository) ([]*model.Package, error) {
	b, err := s.backend(repo)
	if err != nil {
		return nil, err
	}
	marker := s.markerPath(repo, b)
	solv := s.SolvPath(repo)
	mInfo, mErr := os.Stat(marker)
	if sInfo, err := os.Stat(solv); err == nil && (mErr != nil || !sInfo.ModTime().Before(mInfo.ModTime())) {
		pkgs, err := readSolv(solv, repo.ID)
		if err == nil {
			return pkgs, nil
		}
		logger.Debug("solver cache unusable, rebuilding", logger.Fields{"repo": repo.ID, "error": err})
	}
	if mErr != nil {
		return nil, fmt.Errorf("repository %s: %w", repo.ID, ErrNoMetadata)
	}

	pkgs, err := b.Parse(s.MetadataPath(repo), repo)
	if err != nil {
		return nil, errors.Wrapf(err, "repository %s", repo.ID)
	}
	revision, _ := b.Revision(marker)
	if err := writeSolv(solv, repo.ID, revision, pkgs); err != nil {
		logger.Warn("cannot write solver cache", logger.Fields{"repo": repo.ID, "error": err})
	}
	return pkgs, nil
}
