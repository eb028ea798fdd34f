package answers

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultSessionKey is the cache key used when no session is configured.
const DefaultSessionKey = "default"

// Origin records where a loaded Map came from.
type Origin string

const (
	OriginSource Origin = "source"
	OriginCache  Origin = "cache"
	OriginEmpty  Origin = "empty"
)

// Result is the outcome of one load.
type Result struct {
	Answers   *Map
	Origin    Origin
	FetchedAt time.Time
	// Err is the source failure that forced a fallback, if any.
	Err error
}

// Loader resolves answers through a Source, writing successes back to a Cache and falling
// back to it on failure. It never fails: the worst case is an empty Map.
type Loader struct {
	source Source
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewLoader returns a Loader. cache may be nil.
func NewLoader(source Source, cache Cache, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		source: source,
		cache:  cache,
		logger: logger.Named("loader"),
		now:    time.Now,
	}
}

// LoadAnswers returns the answers for sessionID, from the source, the cache, or empty.
func (l *Loader) LoadAnswers(ctx context.Context, sessionID string) *Map {
	return l.Load(ctx, sessionID).Answers
}

// Load is LoadAnswers with provenance.
func (l *Loader) Load(ctx context.Context, sessionID string) Result {
	key := sessionID
	if key == "" {
		key = DefaultSessionKey
	}

	m, err := l.loadFromSource(ctx, sessionID)
	if err == nil {
		fetchedAt := l.now().UTC()
		l.writeBack(ctx, key, m, fetchedAt)
		l.logger.Info("Loaded answers",
			zap.String("source", l.source.Name()),
			zap.String("session", key),
			zap.Int("count", m.Len()))
		return Result{Answers: m, Origin: OriginSource, FetchedAt: fetchedAt}
	}

	l.logger.Warn("Answer source unavailable, falling back to cache",
		zap.String("source", l.source.Name()),
		zap.String("session", key),
		zap.Error(err))

	if l.cache != nil {
		cached, fetchedAt, cacheErr := l.cache.Get(ctx, key)
		switch {
		case cacheErr == nil && cached != nil:
			return Result{Answers: cached, Origin: OriginCache, FetchedAt: fetchedAt, Err: err}
		case cacheErr != nil && !errors.Is(cacheErr, ErrCacheMiss):
			l.logger.Error("Failed to read answer cache", zap.String("session", key), zap.Error(cacheErr))
		}
	}
	return Result{Answers: NewMap(), Origin: OriginEmpty, Err: err}
}

// loadFromSource calls the source, converting a panic into an error.
func (l *Loader) loadFromSource(ctx context.Context, sessionID string) (m *Map, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("answers: source panicked")
			l.logger.Error("Recovered from panic in answer source", zap.Any("panic", r))
		}
	}()
	m, err = l.source.Load(ctx, sessionID)
	if err == nil && m == nil {
		m = NewMap()
	}
	return m, err
}

func (l *Loader) writeBack(ctx context.Context, key string, m *Map, fetchedAt time.Time) {
	if l.cache == nil {
		return
	}
	if _, fromCache := l.source.(*CacheSource); fromCache {
		return
	}
	if err := l.cache.Put(ctx, key, m, fetchedAt); err != nil {
		l.logger.Warn("Failed to cache answers", zap.String("session", key), zap.Error(err))
	}
}
