package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/autofill"
	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
	"github.com/xkilldash9x/visa-autofill/internal/config"
)

const (
	defaultNavTimeout = 60 * time.Second
	cleanupTimeout    = 5 * time.Second
)

var (
	_ autofill.Page       = (*Page)(nil)
	_ autofill.Observable = (*Page)(nil)
)

// Page is one Chrome tab.
type Page struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
	navTimeout time.Duration

	mu      sync.Mutex
	lastURL string
}

func newPage(tabCtx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) *Page {
	timeout := cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = defaultNavTimeout
	}
	return &Page{
		ctx:        tabCtx,
		cancel:     cancel,
		logger:     logger.Named("page"),
		navTimeout: timeout,
	}
}

// Navigate loads url and waits for the body.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, navCancel := combineContext(p.ctx, ctx)
	defer navCancel()
	navCtx, timeoutCancel := context.WithTimeout(navCtx, p.navTimeout)
	defer timeoutCancel()

	p.logger.Info("Navigating", zap.String("url", url))
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to '%s': %w", url, err)
	}
	p.setURL(url)
	return nil
}

// URL returns the tab's current location, or the last one seen if the tab
// does not answer quickly.
func (p *Page) URL() string {
	ctx, cancel := context.WithTimeout(p.ctx, time.Second)
	defer cancel()
	var loc string
	if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.lastURL
	}
	p.setURL(loc)
	return loc
}

func (p *Page) setURL(url string) {
	p.mu.Lock()
	p.lastURL = url
	p.mu.Unlock()
}

// Snapshot serializes the live DOM, control state included, and parses it.
func (p *Page) Snapshot(ctx context.Context) (*dom.Document, error) {
	var markup string
	if err := p.evaluate(ctx, snapshotScript, &markup); err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}
	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return doc, nil
}

// Apply replays actions in order, stopping at the first failure.
func (p *Page) Apply(ctx context.Context, actions []dom.Action) error {
	for i, a := range actions {
		script, err := applyScript(a)
		if err != nil {
			return err
		}
		var found bool
		if err := p.evaluate(ctx, script, &found); err != nil {
			return fmt.Errorf("action %d (%s): %w", i, a, err)
		}
		if !found {
			return fmt.Errorf("action %d (%s): %w", i, a, dom.ErrTargetMissing)
		}
	}
	return nil
}

// ShowStatus shows msg in a banner that removes itself after d.
func (p *Page) ShowStatus(ctx context.Context, msg string, d time.Duration) error {
	if err := p.evaluate(ctx, statusScript(msg, d), nil); err != nil {
		return fmt.Errorf("failed to show status: %w", err)
	}
	return nil
}

// Observe installs the trigger script on the current and every future
// document and forwards what it reports to fn. fn runs on the event loop and
// must not block.
func (p *Page) Observe(ctx context.Context, fn func(autofill.Trigger)) (func(), error) {
	setupCtx, setupCancel := combineContext(p.ctx, ctx)
	defer setupCancel()

	var scriptID page.ScriptIdentifier
	err := chromedp.Run(setupCtx,
		runtime.AddBinding(BindingName),
		chromedp.ActionFunc(func(c context.Context) error {
			var err error
			scriptID, err = page.AddScriptToEvaluateOnNewDocument(observerScript).Do(c)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to install observer: %w", err)
	}

	var stopped atomic.Bool
	listenCtx, listenCancel := context.WithCancel(p.ctx)
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		called, ok := ev.(*runtime.EventBindingCalled)
		if !ok || called.Name != BindingName || stopped.Load() {
			return
		}
		tr, ok := parseTrigger(called.Payload)
		if !ok {
			p.logger.Debug("Ignoring unknown trigger", zap.String("payload", called.Payload))
			return
		}
		fn(tr)
	})

	if err := p.evaluate(setupCtx, observerScript, nil); err != nil {
		listenCancel()
		return nil, fmt.Errorf("failed to start observer: %w", err)
	}
	p.logger.Debug("Observer installed", zap.String("script_id", string(scriptID)))

	var once sync.Once
	stop := func() {
		once.Do(func() {
			stopped.Store(true)
			listenCancel()

			cleanupCtx, cancel := context.WithTimeout(p.ctx, cleanupTimeout)
			defer cancel()
			err := chromedp.Run(cleanupCtx,
				page.RemoveScriptToEvaluateOnNewDocument(scriptID),
				chromedp.Evaluate(stopObserverScript, nil),
			)
			if err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Debug("Observer cleanup failed", zap.Error(err))
			}
		})
	}
	return stop, nil
}

// Close closes the tab.
func (p *Page) Close() {
	p.cancel()
}

func (p *Page) evaluate(ctx context.Context, script string, res interface{}) error {
	evalCtx, cancel := combineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(evalCtx, chromedp.Evaluate(script, res, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true).WithSilent(true)
	}))
}

func parseTrigger(payload string) (autofill.Trigger, bool) {
	switch tr := autofill.Trigger(payload); tr {
	case autofill.TriggerDOMContentLoaded, autofill.TriggerLoad, autofill.TriggerReadyState,
		autofill.TriggerMutation, autofill.TriggerManual:
		return tr, true
	default:
		return "", false
	}
}

// combineContext derives from the tab context, which carries the chromedp
// target, and is also cancelled when secondary is done.
func combineContext(tabCtx, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(tabCtx)
	stop := context.AfterFunc(secondary, func() {
		cancel(context.Cause(secondary))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
