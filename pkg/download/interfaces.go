//go:generate mockgen -destination=./mocks/manager.go . Manager

package download

import (
	"context"
	"net/url"

	"github.com/glorpus-work/hif/pkg/auth"
	"github.com/glorpus-work/hif/pkg/state"
)

// Manager downloads remote metadata and packages into a local directory.
type Manager interface {
	// FetchAll downloads all items and returns a map from Item.ID to the
	// absolute local file path. Items sharing a source are fetched once.
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error)

	// Fetch downloads a single item and returns its absolute local path.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)
}

// Item is one remote resource. URLs are mirrors tried in order.
type Item struct {
	ID           string
	URLs         []*url.URL
	Checksum     string // optional hex digest, verified when set
	ChecksumType string // sha256 when empty
	Filename     string // optional name relative to Options.Dir
	Auth         auth.Authenticator
}

// Options control a download batch.
type Options struct {
	Dir         string       // destination directory, must be absolute
	Concurrency int          // parallel downloads, a default is used when <= 0
	State       *state.State // optional progress scope, one step per source
}
