package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/hif/pkg/auth"
	pkgerrors "github.com/glorpus-work/hif/pkg/errors"
	"github.com/glorpus-work/hif/pkg/state"
)

func sum(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		userAgent  string
		expectedUA string
	}{
		{name: "default user agent", timeout: time.Second, expectedUA: DefaultUserAgent},
		{name: "custom user agent", timeout: 2 * time.Second, userAgent: "test-agent/1.0", expectedUA: "test-agent/1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.timeout, tt.userAgent)
			require.NotNil(t, m)
			assert.Equal(t, tt.timeout, m.client.Timeout)
			assert.Equal(t, tt.expectedUA, m.userAgent)
		})
	}
}

func TestFetch_SingleFile(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		expectError    bool
		expectErrorMsg string
	}{
		{name: "successful download", status: http.StatusOK},
		{name: "not found", status: http.StatusNotFound, expectError: true, expectErrorMsg: "unexpected status code: 404"},
		{name: "server error", status: http.StatusInternalServerError, expectError: true, expectErrorMsg: "unexpected status code: 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test", r.UserAgent())
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("test content"))
			}))
			defer server.Close()

			m := NewManager(time.Second, "test")
			item := Item{ID: "test", URLs: []*url.URL{mustURL(t, server.URL)}, Filename: "file.bin"}

			path, err := m.Fetch(context.Background(), item, Options{Dir: t.TempDir()})
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErrorMsg)
				assert.ErrorIs(t, err, pkgerrors.ErrFetch)
				return
			}
			require.NoError(t, err)
			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "test content", string(content))
		})
	}
}

func TestFetch_WithChecksum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("test content"))
	}))
	defer server.Close()

	tests := []struct {
		name        string
		checksum    string
		expectError bool
	}{
		{name: "valid checksum", checksum: sum("test content")},
		{name: "invalid checksum", checksum: sum("other content"), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := Item{ID: "test-checksum", URLs: []*url.URL{mustURL(t, server.URL)}, Checksum: tt.checksum}
			dir := t.TempDir()

			_, err := NewManager(time.Second, "test").Fetch(context.Background(), item, Options{Dir: dir})
			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, pkgerrors.ErrFileHashMismatch)
				entries, _ := os.ReadDir(dir)
				assert.Empty(t, entries, "no partial file is left behind")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFetch_AppliesCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("private"))
	}))
	defer server.Close()

	mgr := NewManager(time.Second, "test")
	item := Item{ID: "private", URLs: []*url.URL{mustURL(t, server.URL)}}

	_, err := mgr.Fetch(context.Background(), item, Options{Dir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrFetch)

	item.Auth = auth.Basic{Username: "user", Password: "secret"}
	path, err := mgr.Fetch(context.Background(), item, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "private", string(data))
}

func TestFetch_ReusesValidCachedFile(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	dir := t.TempDir()
	item := Item{ID: "p", URLs: []*url.URL{mustURL(t, server.URL)}, Checksum: sum("payload"), Filename: "p.rpm"}
	m := NewManager(time.Second, "test")

	_, err := m.Fetch(context.Background(), item, Options{Dir: dir})
	require.NoError(t, err)
	_, err = m.Fetch(context.Background(), item, Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.rpm"), []byte("corrupt"), 0o644))
	path, err := m.Fetch(context.Background(), item, Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "a corrupt cached file is downloaded again")
	content, _ := os.ReadFile(path)
	assert.Equal(t, "payload", string(content))
}

func TestFetch_FallsBackToMirror(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("mirror"))
	}))
	defer good.Close()

	item := Item{ID: "m", URLs: []*url.URL{mustURL(t, broken.URL), mustURL(t, good.URL)}}
	path, err := NewManager(time.Second, "test").Fetch(context.Background(), item, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	content, _ := os.ReadFile(path)
	assert.Equal(t, "mirror", string(content))
}

func TestFetch_FileURL(t *testing.T) {
	src := filepath.Join(t.TempDir(), "repomd.xml")
	require.NoError(t, os.WriteFile(src, []byte("<repomd/>"), 0o644))

	item := Item{ID: "local", URLs: []*url.URL{{Scheme: "file", Path: filepath.ToSlash(src)}}, Filename: "repomd.xml"}
	path, err := NewManager(time.Second, "test").Fetch(context.Background(), item, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	content, _ := os.ReadFile(path)
	assert.Equal(t, "<repomd/>", string(content))
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	item := Item{ID: "slow", URLs: []*url.URL{mustURL(t, server.URL)}}
	_, err := NewManager(50*time.Millisecond, "test").Fetch(context.Background(), item, Options{Dir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrFetch)
}

func TestFetch_RelativeDir(t *testing.T) {
	item := Item{ID: "x", URLs: []*url.URL{mustURL(t, "http://localhost/x")}}
	_, err := NewManager(time.Second, "test").Fetch(context.Background(), item, Options{Dir: "relative"})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidPath)
}

func TestFetchAll_Concurrent(t *testing.T) {
	const numItems = 5
	responses := make(map[string]string)
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		content, ok := responses[r.URL.Path[1:]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	var items []Item
	for i := 0; i < numItems; i++ {
		id := string(rune('a' + i))
		responses[id] = "content for " + id
		items = append(items, Item{ID: id, URLs: []*url.URL{mustURL(t, server.URL+"/"+id)}, Filename: id})
	}
	// Same source under a second ID is only fetched once.
	items = append(items, Item{ID: "a-again", URLs: []*url.URL{mustURL(t, server.URL+"/a")}, Filename: "a"})

	var reported []int
	st := state.New(func(p int) { reported = append(reported, p) })

	results, err := NewManager(5*time.Second, "test").FetchAll(context.Background(), items, Options{
		Dir:         t.TempDir(),
		Concurrency: 3,
		State:       st,
	})
	require.NoError(t, err)
	require.Len(t, results, numItems+1)
	assert.Equal(t, int32(numItems), hits.Load())
	assert.Equal(t, results["a"], results["a-again"])

	for _, item := range items {
		content, err := os.ReadFile(results[item.ID])
		require.NoError(t, err)
		assert.Equal(t, responses[item.URLs[0].Path[1:]], string(content))
	}
	require.NotEmpty(t, reported)
	assert.Equal(t, 100, reported[len(reported)-1])
}

func TestFetchAll_FirstErrorWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	items := []Item{
		{ID: "ok", URLs: []*url.URL{mustURL(t, server.URL+"/ok")}},
		{ID: "missing", URLs: []*url.URL{mustURL(t, server.URL+"/missing")}},
	}
	_, err := NewManager(time.Second, "test").FetchAll(context.Background(), items, Options{Dir: t.TempDir(), Concurrency: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchAll_ItemWithoutURL(t *testing.T) {
	_, err := NewManager(time.Second, "test").FetchAll(context.Background(), []Item{{ID: "x"}}, Options{Dir: t.TempDir()})
	assert.ErrorIs(t, err, pkgerrors.ErrDownloadFailed)
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	got, err := HashFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)

	got, err = HashFile(path, "SHA1")
	require.NoError(t, err)
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", got)

	ok, err := VerifyFile(path, "sha256", " BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD ")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = HashFile(path, "crc32")
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	assert.False(t, SupportedChecksum("crc32"))
	assert.True(t, SupportedChecksum("sha512"))
}
