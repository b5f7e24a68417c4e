package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/state"
)

// RefreshStatus is the per-repository outcome of Refresh.
type RefreshStatus int

const (
	// RefreshFresh means the cached metadata was recent enough.
	RefreshFresh RefreshStatus = iota
	// RefreshUpdated means new metadata was downloaded.
	RefreshUpdated
	// RefreshSkipped means the repository could not be fetched and was left out.
	RefreshSkipped
	// RefreshDisabled means the repository is disabled.
	RefreshDisabled
	// RefreshFailed means a non-recoverable error occurred.
	RefreshFailed
)

func (s RefreshStatus) String() string {
	switch s {
	case RefreshFresh:
		return "fresh"
	case RefreshUpdated:
		return "updated"
	case RefreshSkipped:
		return "skipped"
	case RefreshDisabled:
		return "disabled"
	default:
		return "failed"
	}
}

// RefreshResult describes what happened to one repository.
type RefreshResult struct {
	Repo      *Repository
	Checked   bool
	Freshness Freshness
	Status    RefreshStatus
	Err       error
	// Messages are the progress lines of the repository, in emission order.
	Messages []string
}

// RefreshOptions control Refresh.
type RefreshOptions struct {
	// Force updates repositories even when their cache is fresh.
	Force bool
	// MaxAge is the default cache age for repositories without an override.
	MaxAge time.Duration
	// Concurrency bounds parallel repositories; <= 0 means one at a time.
	Concurrency int
	// OnMessage receives the progress lines of each repository. Calls are
	// serialized and follow the order of the repositories passed in: the
	// lines of a repository are released once every earlier one finished.
	OnMessage func(repo, msg string)
}

// Refresh checks every repository and updates the stale ones in parallel.
// Results are returned in input order. A FetchError skips the repository;
// any other failure is returned after all repositories have finished,
// choosing the first failing repository in input order.
func (s *Store) Refresh(ctx context.Context, repos []*Repository, opts RefreshOptions, st *state.State) ([]RefreshResult, error) {
	results := make([]RefreshResult, len(repos))
	if len(repos) == 0 {
		return results, nil
	}
	if st == nil {
		st = state.New(nil)
	}
	if err := st.SetNumberSteps(len(repos)); err != nil {
		return nil, err
	}
	children := st.Children()
	notify := opts.OnMessage
	if notify == nil {
		notify = func(string, string) {}
	}

	flush := newOrderedFlush(len(repos), notify)

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	} else {
		g.SetLimit(1)
	}
	for i, repo := range repos {
		results[i].Repo = repo
		g.Go(func() error {
			res := &results[i]
			collect := func(_, msg string) { res.Messages = append(res.Messages, msg) }
			s.refreshOne(gctx, repo, opts, children[i], collect, res)
			_ = children[i].Finished()
			flush.finish(i, repo.ID, res.Messages)
			if res.Status == RefreshFailed {
				return res.Err
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := firstFailure(results); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// orderedFlush hands buffered repository lines to notify in input order.
type orderedFlush struct {
	mu       sync.Mutex
	next     int
	finished []bool
	ids      []string
	pending  [][]string
	notify   func(repo, msg string)
}

func newOrderedFlush(n int, notify func(repo, msg string)) *orderedFlush {
	return &orderedFlush{
		finished: make([]bool, n),
		ids:      make([]string, n),
		pending:  make([][]string, n),
		notify:   notify,
	}
}

// finish records the lines of repository i and releases every finished
// prefix that is no longer waiting on an earlier repository.
func (f *orderedFlush) finish(i int, id string, msgs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished[i], f.ids[i], f.pending[i] = true, id, msgs
	for f.next < len(f.finished) && f.finished[f.next] {
		for _, m := range f.pending[f.next] {
			f.notify(f.ids[f.next], m)
		}
		f.pending[f.next] = nil
		f.next++
	}
}

func (s *Store) refreshOne(ctx context.Context, repo *Repository, opts RefreshOptions, st *state.State, notify func(string, string), res *RefreshResult) {
	if !repo.Enabled {
		res.Status = RefreshDisabled
		return
	}
	if err := ctx.Err(); err != nil {
		res.Status, res.Err = RefreshFailed, err
		return
	}
	_ = st.SetSteps(5, 95)

	notify(repo.ID, fmt.Sprintf("Checking %s", repo.ID))
	fresh, err := s.Check(ctx, repo, repo.MaxAge(opts.MaxAge), st.Child())
	if err != nil {
		res.Status, res.Err = RefreshFailed, err
		return
	}
	_ = st.Done()
	res.Checked = true
	res.Freshness = fresh
	if fresh.Fresh && !opts.Force {
		res.Status = RefreshFresh
		return
	}
	if !fresh.Fresh {
		notify(repo.ID, fmt.Sprintf("Failed to check %s: %s", repo.ID, fresh.Reason))
	}

	if err := ctx.Err(); err != nil {
		res.Status, res.Err = RefreshFailed, err
		return
	}
	notify(repo.ID, fmt.Sprintf("Updating %s", repo.ID))
	err = s.Update(ctx, repo, UpdateOptions{Force: opts.Force}, st.Child())
	switch {
	case err == nil:
		res.Status = RefreshUpdated
	case errors.Is(err, errors.ErrFetch):
		notify(repo.ID, fmt.Sprintf("Skipping repo: %s", err))
		logger.Warn("repository skipped", logger.Fields{"repo": repo.ID, "error": err})
		res.Status, res.Err = RefreshSkipped, err
	default:
		res.Status, res.Err = RefreshFailed, err
	}
}

func firstFailure(results []RefreshResult) error {
	var canceled error
	for _, r := range results {
		if r.Status != RefreshFailed {
			continue
		}
		if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
			if canceled == nil {
				canceled = r.Err
			}
			continue
		}
		return errors.Wrapf(r.Err, "refresh %s", r.Repo.ID)
	}
	return canceled
}

// Counts tallies results by status.
func Counts(results []RefreshResult) map[RefreshStatus]int {
	out := make(map[RefreshStatus]int)
	for _, r := range results {
		out[r.Status]++
	}
	return out
}
