package autofill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
	"github.com/xkilldash9x/visa-autofill/internal/config"
	"github.com/xkilldash9x/visa-autofill/internal/textnorm"
)

// ErrBusy is returned by RunPass while another pass holds the guard.
var ErrBusy = errors.New("autofill: a fill pass is already running")

// Status messages shown on the page after a pass.
const (
	StatusFilledFormat = "Auto-filled %d fields"
	StatusNothing      = "No new fields to fill"
	StatusFailed       = "Autofill failed"
)

// State is the controller's position in the fill cycle.
type State int32

const (
	StateIdle State = iota
	StateFilling
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateFilling:
		return "filling"
	case StateCooldown:
		return "cooldown"
	default:
		return "idle"
	}
}

// PassSummary reports one fill pass.
type PassSummary struct {
	Trigger   Trigger `json:"trigger"`
	Questions int     `json:"questions"`
	Matched   int     `json:"matched"`
	FillSummary
	Actions       int    `json:"actions"`
	EmptyRequired int    `json:"empty_required"`
	Advanced      bool   `json:"advanced"`
	Status        string `json:"status"`
}

// Controller runs fill passes against one page. At most one pass runs at a
// time. Triggers that arrive meanwhile are dropped, except that the latest
// page-load trigger is kept and run when the pass ends.
type Controller struct {
	page   Page
	cfg    config.AutofillConfig
	norm   textnorm.Normalizer
	logger *zap.Logger

	answers atomic.Pointer[answers.Map]
	busy    atomic.Bool
	state   atomic.Int32
	pending atomic.Pointer[Trigger]

	// sleep waits for d or until ctx is done. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error

	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	stopObserve func()
	disposed    bool
	wg          sync.WaitGroup
}

// NewController creates a controller for page. It starts with an empty answer set.
func NewController(page Page, cfg config.AutofillConfig, logger *zap.Logger) (*Controller, error) {
	if page == nil {
		return nil, errors.New("page cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	c := &Controller{
		page:   page,
		cfg:    cfg,
		norm:   textnorm.Normalizer{Keep: cfg.KeepPunctuation},
		logger: logger.Named("controller"),
		sleep:  sleepContext,
	}
	c.answers.Store(answers.NewMap())
	return c, nil
}

// SetAnswers replaces the answer set. Passes read it once, when they start.
func (c *Controller) SetAnswers(m *answers.Map) {
	if m == nil {
		m = answers.NewMap()
	}
	c.answers.Store(m)
}

// Answers returns the current answer set.
func (c *Controller) Answers() *answers.Map {
	return c.answers.Load()
}

// State reports the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Start attaches to the page's event sources, if it has any. Passes started by
// triggers run under ctx.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return errors.New("controller has been disposed")
	}
	if c.ctx != nil {
		c.mu.Unlock()
		c.logger.Warn("Controller.Start called, but controller is already running.")
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.ctx, c.cancel = runCtx, cancel
	c.mu.Unlock()

	// Observe may deliver triggers before it returns, so it runs unlocked.
	if obs, ok := c.page.(Observable); ok {
		stop, err := obs.Observe(runCtx, func(t Trigger) { c.Trigger(t) })
		if err != nil {
			c.Dispose()
			return fmt.Errorf("failed to observe page: %w", err)
		}
		c.mu.Lock()
		disposed := c.disposed
		if !disposed {
			c.stopObserve = stop
		}
		c.mu.Unlock()
		if disposed {
			stop()
		}
	}
	c.logger.Info("Controller started", zap.String("url", c.page.URL()))
	return nil
}

// Dispose detaches from the page and waits for the in-flight pass, if any.
// The controller cannot be restarted.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	stop := c.stopObserve
	c.stopObserve = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	c.wg.Wait()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.logger.Info("Controller disposed")
}

// Trigger starts a pass in the background after the delay for reason. A
// page-load trigger that arrives during a pass is deferred until the pass
// ends. It returns false when the trigger was dropped because a pass is
// running or the controller is not started.
func (c *Controller) Trigger(reason Trigger) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ctx == nil || c.disposed {
		return false
	}
	if !c.busy.CompareAndSwap(false, true) {
		if isPageLoad(reason) {
			c.pending.Store(&reason)
			c.logger.Debug("Deferring trigger until the fill pass ends", zap.String("trigger", string(reason)))
			return true
		}
		c.logger.Debug("Dropping trigger, fill pass in progress", zap.String("trigger", string(reason)))
		return false
	}

	ctx := c.ctx
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.release()
		if _, err := c.pass(ctx, reason); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("Fill pass failed", zap.String("trigger", string(reason)), zap.Error(err))
		}
	}()
	return true
}

// RunPass runs one pass synchronously, as the manual trigger does. It returns
// ErrBusy when a pass is already running.
func (c *Controller) RunPass(ctx context.Context) (PassSummary, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return PassSummary{Trigger: TriggerManual}, ErrBusy
	}
	defer c.release()
	return c.pass(ctx, TriggerManual)
}

// release drops the guard and starts the deferred page-load trigger, if any.
// A click on Next can load a new document while the pass that clicked it is
// still settling.
func (c *Controller) release() {
	c.busy.Store(false)
	if next := c.pending.Swap(nil); next != nil {
		c.Trigger(*next)
	}
}

func isPageLoad(reason Trigger) bool {
	switch reason {
	case TriggerDOMContentLoaded, TriggerLoad, TriggerReadyState:
		return true
	}
	return false
}

// pass is one discover, match, fill and progression cycle. The caller holds the guard.
func (c *Controller) pass(ctx context.Context, reason Trigger) (summary PassSummary, err error) {
	summary.Trigger = reason
	logger := c.logger.With(zap.String("trigger", string(reason)))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic during fill pass", zap.Any("panic_value", r))
			err = fmt.Errorf("fill pass panicked: %v", r)
		}
		if err != nil {
			summary.Status = StatusFailed
			c.showStatus(ctx, StatusFailed)
		}
		c.setState(StateIdle)
	}()

	c.setState(StateFilling)
	if err := c.sleep(ctx, c.delayFor(reason)); err != nil {
		return summary, err
	}
	doc, err := c.waitStable(ctx)
	if err != nil {
		return summary, err
	}

	m := c.answers.Load()
	filler := NewFiller(ProfileFor(c.cfg, c.page.URL()), c.norm, c.logger)
	matches, unmatched := DiscoverAndMatch(doc, m, c.norm)
	summary.Questions = len(matches) + len(unmatched)
	summary.Matched = len(matches)
	summary.NoMatch = len(unmatched)
	for _, match := range matches {
		outcome := filler.ResolveAndFill(match.Question.Element, match.Answer)
		summary.add(outcome)
		logger.Debug("Question processed",
			zap.String("question", match.Question.Text),
			zap.String("key", match.Key),
			zap.String("kind", string(match.Kind)),
			zap.String("outcome", string(outcome)),
		)
	}

	actions := doc.Drain()
	summary.Actions = len(actions)
	if len(actions) > 0 {
		if err := c.page.Apply(ctx, actions); err != nil {
			return summary, fmt.Errorf("failed to apply fill actions: %w", err)
		}
	}

	if summary.Filled > 0 {
		summary.Status = fmt.Sprintf(StatusFilledFormat, summary.Filled)
	} else {
		summary.Status = StatusNothing
	}
	c.showStatus(ctx, summary.Status)
	logger.Info("Fill pass complete",
		zap.Int("questions", summary.Questions),
		zap.Int("matched", summary.Matched),
		zap.Stringer("outcomes", summary.FillSummary),
	)

	c.setState(StateCooldown)
	summary.EmptyRequired = CountEmptyRequired(doc, c.norm)
	if summary.EmptyRequired > 0 {
		logger.Info("Required fields still empty, waiting for the user", zap.Int("empty_required", summary.EmptyRequired))
		return summary, nil
	}
	if !c.cfg.AutoAdvance {
		return summary, nil
	}

	advanced, err := c.advance(ctx, doc, logger)
	summary.Advanced = advanced
	return summary, err
}

// advance scrolls to the next control, clicks it and waits for the page to react.
func (c *Controller) advance(ctx context.Context, doc *dom.Document, logger *zap.Logger) (bool, error) {
	next := FindNextControl(doc)
	if next == nil {
		logger.Info("No next control found on page")
		return false, nil
	}

	next.ScrollIntoView()
	if err := c.page.Apply(ctx, doc.Drain()); err != nil {
		return false, fmt.Errorf("failed to scroll to next control: %w", err)
	}
	if err := c.sleep(ctx, c.cfg.Delays.ScrollSettle); err != nil {
		return false, err
	}

	next.Click()
	if err := c.page.Apply(ctx, doc.Drain()); err != nil {
		return false, fmt.Errorf("failed to click next control: %w", err)
	}
	logger.Info("Advanced to next page", zap.String("control", next.XPath()))
	if err := c.sleep(ctx, c.cfg.Delays.PostClickSettle); err != nil {
		return true, err
	}
	return true, nil
}

// waitStable snapshots the page until two consecutive fingerprints agree or
// the stable timeout runs out, and returns the last snapshot.
func (c *Controller) waitStable(ctx context.Context) (*dom.Document, error) {
	doc, err := c.page.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}

	poll := c.cfg.Delays.StablePoll
	if poll <= 0 {
		return doc, nil
	}
	polls := int(c.cfg.Delays.StableTimeout / poll)
	prev := doc.Fingerprint()
	for i := 0; i < polls; i++ {
		if err := c.sleep(ctx, poll); err != nil {
			return nil, err
		}
		next, err := c.page.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot page: %w", err)
		}
		fp := next.Fingerprint()
		doc = next
		if fp == prev {
			return doc, nil
		}
		prev = fp
	}
	c.logger.Debug("Page did not settle before timeout", zap.Duration("timeout", c.cfg.Delays.StableTimeout))
	return doc, nil
}

func (c *Controller) delayFor(reason Trigger) time.Duration {
	d := c.cfg.Delays
	switch reason {
	case TriggerDOMContentLoaded:
		return d.DOMContentLoaded
	case TriggerLoad:
		return d.Load
	case TriggerReadyState:
		return d.ReadyState
	case TriggerMutation:
		return d.Mutation
	default:
		return 0
	}
}

func (c *Controller) showStatus(ctx context.Context, msg string) {
	if ctx.Err() != nil {
		return
	}
	if err := c.page.ShowStatus(ctx, msg, c.cfg.Delays.StatusDuration); err != nil {
		c.logger.Debug("Failed to show status", zap.Error(err))
	}
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
