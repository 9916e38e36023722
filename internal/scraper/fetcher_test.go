package scraper

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visamate/backend/internal/cache"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(cache.New(nil), 5*time.Second, time.Hour, 4)
}

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint("https://example.com", map[string]string{"visa_type": "tourist", "x": "1"})
	b := Fingerprint("https://example.com", map[string]string{"x": "1", "visa_type": "tourist"})
	assert.Equal(t, a, b)

	c := Fingerprint("https://example.com", map[string]string{"visa_type": "business"})
	assert.NotEqual(t, a, c)
}

func TestFetch_CachesSecondCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("<html><body><p>Tourist visa documents</p></body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher()

	docs, warnings, err := f.Fetch(t.Context(), []string{srv.URL}, nil, false)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Empty(t, warnings)
	assert.Contains(t, docs[0].Text, "Tourist visa documents")

	docs2, _, err := f.Fetch(t.Context(), []string{srv.URL}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, docs[0].Text, docs2[0].Text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_ForceRefreshBypassesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("<p>fresh content</p>"))
	}))
	defer srv.Close()

	f := newTestFetcher()

	_, _, err := f.Fetch(t.Context(), []string{srv.URL}, nil, false)
	require.NoError(t, err)
	_, _, err = f.Fetch(t.Context(), []string{srv.URL}, nil, true)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_PartialFailureIsolated(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>good page</p>"))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	f := newTestFetcher()

	docs, warnings, err := f.Fetch(t.Context(), []string{bad.URL, good.URL}, nil, false)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, "good page")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "source unavailable")
}

func TestFetch_AllFailed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := newTestFetcher()

	_, warnings, err := f.Fetch(t.Context(), []string{bad.URL, bad.URL + "/other"}, nil, false)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.Len(t, warnings, 2)
}

func TestFetch_NoURLs(t *testing.T) {
	f := newTestFetcher()
	_, _, err := f.Fetch(t.Context(), nil, nil, false)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
}

func TestFetch_ConcurrentSameFingerprintSingleUpstreamCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte("<p>shared page</p>"))
	}))
	defer srv.Close()

	f := newTestFetcher()

	var wg sync.WaitGroup
	texts := make([]string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, _, err := f.Fetch(t.Context(), []string{srv.URL}, nil, false)
			assert.NoError(t, err)
			if len(docs) == 1 {
				texts[i] = docs[0].Text
			}
		}()
	}

	// Let both callers reach the in-flight fetch before releasing it.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, texts[0], texts[1])
	assert.Contains(t, texts[0], "shared page")
}
