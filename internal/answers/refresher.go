package answers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRefreshInterval is how often answers are reloaded while a browser session is alive.
const DefaultRefreshInterval = 5 * time.Minute

// Refresher reloads answers on an interval and notifies subscribers when they change.
type Refresher struct {
	loader   *Loader
	session  func() string
	interval time.Duration
	logger   *zap.Logger

	mu          sync.Mutex
	current     *Map
	subscribers []func(*Map)
}

// NewRefresher returns a Refresher. session is consulted on every reload so a session
// created while running takes effect on the next tick.
func NewRefresher(loader *Loader, session func() string, interval time.Duration, logger *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		loader:   loader,
		session:  session,
		interval: interval,
		logger:   logger.Named("refresher"),
	}
}

// Subscribe registers fn to receive every changed Map. It is called on the refresher goroutine.
func (r *Refresher) Subscribe(fn func(*Map)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Current returns the last loaded Map, or nil before the first load.
func (r *Refresher) Current() *Map {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Refresh loads once and notifies subscribers if the result differs from the last one.
// It reports whether a notification was sent.
func (r *Refresher) Refresh(ctx context.Context) bool {
	m := r.loader.LoadAnswers(ctx, r.session())

	r.mu.Lock()
	if r.current != nil && r.current.Equal(m) {
		r.mu.Unlock()
		return false
	}
	r.current = m
	subs := make([]func(*Map), len(r.subscribers))
	copy(subs, r.subscribers)
	r.mu.Unlock()

	r.logger.Debug("Answers changed", zap.Int("count", m.Len()))
	for _, fn := range subs {
		fn(m)
	}
	return true
}

// Run loads immediately, then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}
