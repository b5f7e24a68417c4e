package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/glorpus-work/hif/pkg/auth"
	pkgerrors "github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/fsutil"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "hif/1.0"

// ManagerImpl downloads over HTTP(S) and file:// with checksum verification
// and de-duplication of identical sources within a batch.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a download manager. timeout bounds each request,
// including reading the body.
func NewManager(timeout time.Duration, userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout, Transport: transport},
		userAgent: userAgent,
	}
}

// FetchAll downloads multiple items concurrently. The first failure cancels
// the remaining downloads and is returned.
func (m *ManagerImpl) FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(2, runtime.NumCPU()/2)
	}
	if err := prepareDir(opts.Dir); err != nil {
		return nil, err
	}

	bySource, err := buildSourceIndex(items)
	if err != nil {
		return nil, err
	}
	if opts.State != nil && len(bySource) > 0 {
		if err := opts.State.SetNumberSteps(len(bySource)); err != nil {
			return nil, err
		}
	}
	results, err := m.runDownloadWorkers(ctx, items, bySource, opts)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(items))
	for i, it := range items {
		out[it.ID] = results[i]
	}
	return out, nil
}

// Fetch downloads a single item and returns the path to the downloaded file.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts Options) (string, error) {
	if err := prepareDir(opts.Dir); err != nil {
		return "", err
	}
	path, err := m.fetchOne(ctx, item, opts)
	if err != nil {
		return "", err
	}
	if opts.State != nil {
		_ = opts.State.Finished()
	}
	return path, nil
}

func prepareDir(dir string) error {
	if dir == "" || !filepath.IsAbs(dir) {
		return fmt.Errorf("download dir must be absolute: %s: %w", dir, pkgerrors.ErrInvalidPath)
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return pkgerrors.Wrap(err, "could not create download dir")
	}
	return nil
}

func buildSourceIndex(items []Item) (map[string][]int, error) {
	bySource := make(map[string][]int)
	for i, it := range items {
		if len(it.URLs) == 0 || it.URLs[0] == nil {
			return nil, fmt.Errorf("item %q has no URL: %w", it.ID, pkgerrors.ErrDownloadFailed)
		}
		key := it.URLs[0].String()
		bySource[key] = append(bySource[key], i)
	}
	return bySource, nil
}

func (m *ManagerImpl) runDownloadWorkers(ctx context.Context, items []Item, bySource map[string][]int, opts Options) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]string, len(items))
	var firstErr error
	var mu sync.Mutex

	tasks := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range tasks {
				idx := bySource[key][0]
				path, err := m.fetchOne(ctx, items[idx], opts)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()
					continue
				}
				for _, i := range bySource[key] {
					results[i] = path
				}
				if opts.State != nil {
					_ = opts.State.Done()
				}
				mu.Unlock()
			}
		}()
	}

	for _, key := range sortedKeys(bySource) {
		select {
		case tasks <- key:
		case <-ctx.Done():
		}
	}
	close(tasks)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (m *ManagerImpl) fetchOne(ctx context.Context, item Item, opts Options) (string, error) {
	if len(item.URLs) == 0 {
		return "", fmt.Errorf("item %q has no URL: %w", item.ID, pkgerrors.ErrDownloadFailed)
	}
	absPath := filepath.Join(opts.Dir, selectFilename(item))
	if reuse, ok := tryReuseExisting(absPath, item.ChecksumType, item.Checksum); ok {
		return reuse, nil
	}

	var lastErr error
	for _, u := range item.URLs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		lastErr = m.fetchFrom(ctx, u.String(), item, absPath)
		if lastErr == nil {
			return absPath, nil
		}
	}
	return "", lastErr
}

func (m *ManagerImpl) fetchFrom(ctx context.Context, src string, item Item, absPath string) error {
	resp, err := m.doRequest(ctx, src, item.Auth)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	tmpPath, err := writeBodyToTemp(resp, absPath)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", src, pkgerrors.ErrFetch, err)
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if item.Checksum != "" {
		ok, err := VerifyFile(tmpPath, item.ChecksumType, item.Checksum)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("checksum mismatch for %s: %w: %w", src, pkgerrors.ErrFetch, pkgerrors.ErrFileHashMismatch)
		}
	}
	return finalizeFile(tmpPath, absPath)
}

func selectFilename(item Item) string {
	if item.Filename != "" {
		return filepath.FromSlash(item.Filename)
	}
	if item.Checksum != "" {
		return item.Checksum
	}
	h := sha256.Sum256([]byte(item.URLs[0].String()))
	return hex.EncodeToString(h[:])
}

func tryReuseExisting(absPath, checksumType, checksum string) (string, bool) {
	st, err := os.Stat(absPath)
	if err != nil || !st.Mode().IsRegular() || st.Size() == 0 {
		return "", false
	}
	if checksum == "" {
		return "", false
	}
	if ok, err := VerifyFile(absPath, checksumType, checksum); err == nil && ok {
		return absPath, true
	}
	return "", false
}

func (m *ManagerImpl) doRequest(ctx context.Context, src string, creds auth.Authenticator) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w: %w", src, pkgerrors.ErrFetch, err)
	}
	req.Header.Set("User-Agent", m.userAgent)
	if creds != nil {
		creds.Apply(req)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download of %s failed: %w: %w", src, pkgerrors.ErrFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d from %s: %w: %w",
			resp.StatusCode, src, pkgerrors.ErrFetch, pkgerrors.ErrDownloadFailed)
	}
	return resp, nil
}

func writeBodyToTemp(resp *http.Response, absPath string) (string, error) {
	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return "", pkgerrors.Wrap(err, "could not create download dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(absPath), "dl-*.tmp")
	if err != nil {
		return "", pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return tmpPath, pkgerrors.Wrap(err, "could not write file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return tmpPath, pkgerrors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		return tmpPath, pkgerrors.Wrap(err, "could not close file")
	}
	return tmpPath, nil
}

func finalizeFile(tmpPath, absPath string) error {
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	if err := os.Chmod(absPath, fsutil.FileModeDefault); err != nil {
		return pkgerrors.Wrap(err, "could not set permissions")
	}
	return nil
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
