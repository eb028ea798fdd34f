// Package cdp drives a live Chrome tab over the DevTools protocol and exposes
// it as an autofill page.
package cdp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/config"
)

// Browser owns the Chrome process.
type Browser struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	cfg         config.BrowserConfig
	logger      *zap.Logger

	mu       sync.Mutex
	firstTab bool
}

// Launch starts Chrome. A configured user data dir keeps the portal login
// across restarts.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := execOptions(cfg)
	if err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)
	// The first Run starts the process and attaches to its initial tab.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	logger = logger.Named("browser")
	logger.Info("Browser launched", zap.Bool("headless", cfg.Headless), zap.String("user_data_dir", cfg.UserDataDir))
	return &Browser{
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
		cfg:         cfg,
		logger:      logger,
		firstTab:    true,
	}, nil
}

// NewPage returns a tab. The first call reuses the tab Chrome opened at launch.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	b.mu.Lock()
	reuse := b.firstTab
	b.firstTab = false
	b.mu.Unlock()

	if reuse {
		return newPage(b.ctx, func() {}, b.cfg, b.logger), nil
	}

	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return newPage(tabCtx, cancel, b.cfg, b.logger), nil
}

// Close shuts Chrome down.
func (b *Browser) Close() {
	b.cancel()
	b.allocCancel()
	b.logger.Info("Browser closed")
}

// execOptions builds the allocator options from config. Extra args may be
// boolean flags or key=value pairs, with or without leading dashes.
func execOptions(cfg config.BrowserConfig) ([]chromedp.ExecAllocatorOption, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
	)
	// The defaults run headless; the portal login needs a visible window.
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.UserDataDir != "" {
		dir, err := homedir.Expand(cfg.UserDataDir)
		if err != nil {
			return nil, fmt.Errorf("expanding user data dir %q: %w", cfg.UserDataDir, err)
		}
		opts = append(opts, chromedp.UserDataDir(dir))
	}
	for _, f := range parseArgs(cfg.Args) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	return opts, nil
}

type flag struct {
	name  string
	value interface{}
}

func parseArgs(args []string) []flag {
	var out []flag
	for _, arg := range args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if key, value, found := strings.Cut(arg, "="); found {
			out = append(out, flag{name: key, value: value})
		} else {
			out = append(out, flag{name: arg, value: true})
		}
	}
	return out
}
