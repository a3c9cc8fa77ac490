package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/categorytree/internal/version"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{name: "1.0.0 < 1.0.1", a: "1.0.0", b: "1.0.1", want: -1},
		{name: "1.0.1 > 1.0.0", a: "1.0.1", b: "1.0.0", want: 1},
		{name: "1.0.0 == 1.0.0", a: "1.0.0", b: "1.0.0", want: 0},
		{name: "v1.0.0 < 1.0.1", a: "v1.0.0", b: "1.0.1", want: -1},
		{name: "1.0.0 < v1.0.1", a: "1.0.0", b: "v1.0.1", want: -1},
		{name: "1.0.0 < 2.0.0", a: "1.0.0", b: "2.0.0", want: -1},
		{name: "2.0.0 > 1.9.9", a: "2.0.0", b: "1.9.9", want: 1},
		{name: "dev > 1.0.0", a: "dev", b: "1.0.0", want: 1},
		{name: "1.0.0 < dev", a: "1.0.0", b: "dev", want: -1},
		{name: "1.0.0-beta == 1.0.0", a: "1.0.0-beta", b: "1.0.0", want: 0},
		{name: "0.10.0 > 0.9.0", a: "0.10.0", b: "0.9.0", want: 1},
		{name: "1.2 == 1.2.0", a: "1.2", b: "1.2.0", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareVersions(tt.a, tt.b))
		})
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")

	dir, err := cacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "cattree"), dir)
}

func TestCheckWithCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "cattree/"+version.Version, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"tag_name":"v9.1.0","html_url":"https://example.com/v9.1.0"}`))
	}))
	defer srv.Close()

	orig := releaseURL
	releaseURL = srv.URL
	defer func() { releaseURL = orig }()

	origVersion := version.Version
	version.Version = "1.0.0"
	defer func() { version.Version = origVersion }()

	info, err := CheckWithCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "9.1.0", info.LatestVersion)
	assert.True(t, info.UpdateAvailable)
	assert.Contains(t, info.String(), "cattree 9.1.0 is available")

	// The second check is answered from the cache.
	info, err = CheckWithCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.WithinDuration(t, time.Now(), info.CheckedAt, time.Minute)
}

func TestCheckStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	orig := releaseURL
	releaseURL = srv.URL
	defer func() { releaseURL = orig }()

	_, err := check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
