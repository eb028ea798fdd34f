package autofill

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
)

// Trigger names what started a fill pass.
type Trigger string

const (
	TriggerDOMContentLoaded Trigger = "dom-content-loaded"
	TriggerLoad             Trigger = "load"
	TriggerReadyState       Trigger = "ready-state"
	TriggerMutation         Trigger = "mutation"
	TriggerManual           Trigger = "manual"
)

// Page is the surface a fill pass works against.
type Page interface {
	// Snapshot captures the page, live control state included.
	Snapshot(ctx context.Context) (*dom.Document, error)
	// Apply replays journaled actions in order.
	Apply(ctx context.Context, actions []dom.Action) error
	// ShowStatus displays a transient message for d.
	ShowStatus(ctx context.Context, msg string, d time.Duration) error
	URL() string
}

// Observable pages report the events that should start a pass. stop detaches
// every listener.
type Observable interface {
	Observe(ctx context.Context, fn func(Trigger)) (func(), error)
}

// StaticPage is a Page over an in-memory document, such as an HTML file on
// disk. Applied actions mutate the document.
type StaticPage struct {
	mu       sync.Mutex
	doc      *dom.Document
	url      string
	applied  []dom.Action
	statuses []string
	logger   *zap.Logger
}

// NewStaticPage wraps doc. url is only reported, never fetched.
func NewStaticPage(doc *dom.Document, url string, logger *zap.Logger) *StaticPage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaticPage{doc: doc, url: url, logger: logger.Named("static_page")}
}

// Snapshot returns an independent copy of the current document.
func (p *StaticPage) Snapshot(ctx context.Context) (*dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return dom.ParseString(p.doc.String())
}

// Apply replays actions onto the document.
func (p *StaticPage) Apply(ctx context.Context, actions []dom.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.doc.Replay(actions)
	p.applied = append(p.applied, p.doc.Drain()...)
	if err != nil {
		return fmt.Errorf("failed to apply actions to static page: %w", err)
	}
	return nil
}

// ShowStatus records and logs msg.
func (p *StaticPage) ShowStatus(_ context.Context, msg string, _ time.Duration) error {
	p.mu.Lock()
	p.statuses = append(p.statuses, msg)
	p.mu.Unlock()
	p.logger.Info("Status", zap.String("message", msg))
	return nil
}

func (p *StaticPage) URL() string { return p.url }

// Document returns the page document. Callers must not use it while a pass runs.
func (p *StaticPage) Document() *dom.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc
}

// Applied returns every action applied so far.
func (p *StaticPage) Applied() []dom.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]dom.Action, len(p.applied))
	copy(out, p.applied)
	return out
}

// Statuses returns every status message shown so far.
func (p *StaticPage) Statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.statuses))
	copy(out, p.statuses)
	return out
}
