package answers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/visa-autofill/internal/config"
)

func TestLoaderWritesBackOnSuccess(t *testing.T) {
	cache := newMemCache()
	src := &stubSource{m: FromPairs("What is your passport number?", "P1")}
	loader := NewLoader(src, cache, zaptest.NewLogger(t))
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	loader.now = func() time.Time { return fixed }

	res := loader.Load(context.Background(), "s1")
	assert.Equal(t, OriginSource, res.Origin)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, res.Answers.Len())

	cached, at, err := cache.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, cached.Equal(res.Answers))
	assert.Equal(t, fixed, at)
}

// A REST failure with a cache entry for the session yields the cached answers and no error.
func TestLoaderFallsBackToCacheOnNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every request now fails to connect

	src, err := SelectSource(config.AnswersConfig{BaseURL: srv.URL, Timeout: time.Second}, Deps{})
	require.NoError(t, err)

	cache := newMemCache()
	cachedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, cache.Put(context.Background(), "s1", FromPairs("What is your sex?", "Female"), cachedAt))

	loader := NewLoader(src, cache, zaptest.NewLogger(t))
	var m *Map
	require.NotPanics(t, func() { m = loader.LoadAnswers(context.Background(), "s1") })
	require.Equal(t, 1, m.Len())
	v, _ := m.Get("what is your sex")
	assert.Equal(t, "Female", v)

	res := loader.Load(context.Background(), "s1")
	assert.Equal(t, OriginCache, res.Origin)
	assert.Equal(t, cachedAt, res.FetchedAt)
	assert.Error(t, res.Err)
	assert.Equal(t, 1, cache.puts, "a failed fetch must not overwrite the cache")
}

func TestLoaderEmptyWhenNothingCached(t *testing.T) {
	src := &stubSource{err: errors.New("offline")}
	loader := NewLoader(src, newMemCache(), zaptest.NewLogger(t))

	res := loader.Load(context.Background(), "unknown")
	assert.Equal(t, OriginEmpty, res.Origin)
	require.NotNil(t, res.Answers)
	assert.Equal(t, 0, res.Answers.Len())
}

func TestLoaderCacheReadError(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New("disk on fire")
	loader := NewLoader(&stubSource{err: errors.New("offline")}, cache, zaptest.NewLogger(t))

	res := loader.Load(context.Background(), "s")
	assert.Equal(t, OriginEmpty, res.Origin)
}

func TestLoaderNilCacheAndDefaultKey(t *testing.T) {
	loader := NewLoader(&stubSource{m: FromPairs("q", "a")}, nil, nil)
	assert.Equal(t, 1, loader.LoadAnswers(context.Background(), "").Len())

	cache := newMemCache()
	loader = NewLoader(&stubSource{m: FromPairs("q", "a")}, cache, nil)
	loader.LoadAnswers(context.Background(), "")
	_, _, err := cache.Get(context.Background(), DefaultSessionKey)
	assert.NoError(t, err)
}

func TestLoaderRecoversFromSourcePanic(t *testing.T) {
	loader := NewLoader(&stubSource{panic: true}, nil, zaptest.NewLogger(t))
	var res Result
	require.NotPanics(t, func() { res = loader.Load(context.Background(), "s") })
	assert.Equal(t, OriginEmpty, res.Origin)
	assert.Error(t, res.Err)
}

func TestLoaderDoesNotWriteBackCacheSource(t *testing.T) {
	cache := newMemCache()
	require.NoError(t, cache.Put(context.Background(), "s", FromPairs("q", "a"), time.Now()))
	loader := NewLoader(&CacheSource{Cache: cache}, cache, nil)

	res := loader.Load(context.Background(), "s")
	assert.Equal(t, OriginSource, res.Origin)
	assert.Equal(t, 1, cache.puts)
}
