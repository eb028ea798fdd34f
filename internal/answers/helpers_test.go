package answers

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// memCache is an in-memory Cache used by the loader tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	puts    int
	getErr  error
}

type memEntry struct {
	m  *Map
	at time.Time
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]memEntry)}
}

func (c *memCache) Get(_ context.Context, sessionID string) (*Map, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, time.Time{}, c.getErr
	}
	e, ok := c.entries[sessionID]
	if !ok {
		return nil, time.Time{}, ErrCacheMiss
	}
	return e.m, e.at, nil
}

func (c *memCache) Put(_ context.Context, sessionID string, m *Map, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = memEntry{m: m, at: at}
	c.puts++
	return nil
}

// stubSource returns fixed results and counts calls.
type stubSource struct {
	mu    sync.Mutex
	m     *Map
	err   error
	calls int
	panic bool
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Load(context.Context, string) (*Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panic {
		panic("boom")
	}
	return s.m, s.err
}

func (s *stubSource) set(m *Map, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m, s.err = m, err
}

// fastRetries swaps the fetcher's backoff for a short constant one with a retry cap.
func fastRetries(src Source, retries uint64) {
	var f *fetcher
	switch s := src.(type) {
	case *RESTSource:
		f = s.fetch
	case *StaticSource:
		f = s.fetch
	case *S3Source:
		f = s.fetch
	default:
		return
	}
	f.backoffFactory = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), retries)
	}
}
