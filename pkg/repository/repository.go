// Package repository keeps the local copy of remote repository metadata:
// it checks cached metadata for staleness, downloads and validates fresh
// metadata, and maintains the per-repository solver cache that the package
// universe is loaded from.
package repository

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/glorpus-work/hif/pkg/auth"
	"github.com/glorpus-work/hif/pkg/config"
	"github.com/glorpus-work/hif/pkg/errors"
)

// Repository errors.
var (
	// ErrNoMetadata is returned by Load when nothing is cached for a repository.
	ErrNoMetadata = errors.New("no cached metadata")
	// ErrUnknownKind is returned for a repository type without a backend.
	ErrUnknownKind = errors.New("unknown repository type")
)

// Repository is one configured package source.
type Repository struct {
	ID       string
	Name     string
	BaseURLs []*url.URL
	Enabled  bool
	// Priority orders identical builds across repositories; lower wins.
	Priority int
	// CacheAge overrides the store default when set. Negative never expires.
	CacheAge          *time.Duration
	Kind              string
	SkipIfUnavailable bool
	// Order is the position in the configuration.
	Order int
	// Auth is applied to every request made for the repository.
	Auth auth.Authenticator
}

func (r *Repository) String() string {
	return r.ID
}

// MaxAge returns the repository's cache age, falling back to def.
func (r *Repository) MaxAge(def time.Duration) time.Duration {
	if r.CacheAge != nil {
		return *r.CacheAge
	}
	return def
}

// URLsFor resolves rel against every base URL, in mirror order.
func (r *Repository) URLsFor(rel string) []*url.URL {
	ref := &url.URL{Path: strings.TrimPrefix(rel, "/")}
	out := make([]*url.URL, 0, len(r.BaseURLs))
	for _, base := range r.BaseURLs {
		b := *base
		if !strings.HasSuffix(b.Path, "/") {
			b.Path += "/"
		}
		out = append(out, b.ResolveReference(ref))
	}
	return out
}

// FromConfig builds repositories from their configuration, keeping order.
func FromConfig(cfgs []*config.RepositoryConfig) ([]*Repository, error) {
	out := make([]*Repository, 0, len(cfgs))
	for i, rc := range cfgs {
		urls, err := rc.URLs()
		if err != nil {
			return nil, err
		}
		priority := rc.Priority
		if priority == 0 {
			priority = config.DefaultPriority
		}
		kind := rc.Type
		if kind == "" {
			kind = config.KindRPMMD
		}
		creds, err := auth.New(rc.Auth)
		if err != nil {
			return nil, fmt.Errorf("repository %s: %w", rc.ID, err)
		}
		name := rc.Name
		if name == "" {
			name = rc.ID
		}
		out = append(out, &Repository{
			ID:                rc.ID,
			Name:              name,
			BaseURLs:          urls,
			Enabled:           rc.IsEnabled(),
			Priority:          priority,
			CacheAge:          rc.CacheAge,
			Kind:              kind,
			SkipIfUnavailable: rc.SkipUnavailable(),
			Order:             i,
			Auth:              creds,
		})
	}
	return out, nil
}

// Enabled filters repos down to the enabled ones, keeping order.
func Enabled(repos []*Repository) []*Repository {
	out := make([]*Repository, 0, len(repos))
	for _, r := range repos {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the repository with the given id, or nil.
func Find(repos []*Repository, id string) *Repository {
	for _, r := range repos {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Freshness is the outcome of a staleness check.
type Freshness struct {
	Fresh  bool
	Age    time.Duration // age of the cached metadata, zero when missing
	Reason string        // why the cache is not fresh
}

// FetchError reports that a repository's remote metadata could not be
// obtained or was unusable. Bulk refresh treats it as a recoverable skip.
type FetchError struct {
	Repo string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cannot update repo %s: %v", e.Repo, e.Err)
}

// Unwrap exposes both the fetch class and the underlying cause.
func (e *FetchError) Unwrap() []error {
	return []error{errors.ErrFetch, e.Err}
}
