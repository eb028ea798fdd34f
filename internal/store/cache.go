package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/config"
)

// OpenCache returns the answer cache selected by cache.driver. With driver "none" the
// cache is nil. The returned close function is never nil.
func OpenCache(ctx context.Context, cfg config.Interface, logger *zap.Logger) (answers.Cache, func(), error) {
	noop := func() {}
	switch cfg.Cache().Driver {
	case config.CacheDriverNone:
		return nil, noop, nil
	case config.CacheDriverPostgres:
		s, closeFn, err := Open(ctx, cfg.Database().URL, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("opening postgres answer cache: %w", err)
		}
		return s, closeFn, nil
	default:
		l, err := OpenLocal(cfg.Cache().Path, logger)
		if err != nil {
			return nil, noop, err
		}
		return l, func() {
			if err := l.Close(); err != nil {
				logger.Warn("Failed to close answer cache", zap.Error(err))
			}
		}, nil
	}
}
