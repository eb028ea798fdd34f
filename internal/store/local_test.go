package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/config"
)

func openMemory(t *testing.T) *Local {
	t.Helper()
	l, err := OpenLocal(MemoryPath, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := openMemory(t)

	_, _, err := l.Get(ctx, "s1")
	assert.ErrorIs(t, err, answers.ErrCacheMiss)

	at := time.Date(2026, 2, 3, 4, 5, 6, 7, time.FixedZone("IST", 19800))
	first := answers.FromPairs("What is your passport number?", "P1", "What is your sex?", "Male")
	require.NoError(t, l.Put(ctx, "s1", first, at))

	got, gotAt, err := l.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Equal(first))
	assert.True(t, gotAt.Equal(at))
	assert.Equal(t, time.UTC, gotAt.Location())

	// Upsert replaces the whole entry.
	second := answers.FromPairs("What is your sex?", "Female")
	require.NoError(t, l.Put(ctx, "s1", second, at.Add(time.Hour)))
	got, _, err = l.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Equal(second))
}

func TestLocalSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	l := openMemory(t)
	require.NoError(t, l.Put(ctx, "a", answers.FromPairs("q", "1"), time.Now()))

	_, _, err := l.Get(ctx, "b")
	assert.ErrorIs(t, err, answers.ErrCacheMiss)
}

func TestOpenLocalCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "answers.db")
	l, err := OpenLocal(path, nil)
	require.NoError(t, err)
	require.NoError(t, l.Put(context.Background(), "s", answers.FromPairs("q", "a"), time.Now()))
	require.NoError(t, l.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)

	// Data survives a reopen.
	l, err = OpenLocal(path, nil)
	require.NoError(t, err)
	defer l.Close()
	m, _, err := l.Get(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestOpenCache(t *testing.T) {
	cfg := config.NewDefaultConfig()

	cfg.CacheCfg.Driver = config.CacheDriverNone
	c, closeFn, err := OpenCache(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, c)
	closeFn()

	cfg.CacheCfg.Driver = config.CacheDriverSQLite
	cfg.CacheCfg.Path = filepath.Join(t.TempDir(), "cache.db")
	c, closeFn, err = OpenCache(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &Local{}, c)
	closeFn()
}
