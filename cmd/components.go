// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/config"
	"github.com/xkilldash9x/visa-autofill/internal/network"
	"github.com/xkilldash9x/visa-autofill/internal/service"
	"github.com/xkilldash9x/visa-autofill/internal/settings"
	"github.com/xkilldash9x/visa-autofill/internal/store"
)

// components holds the answer pipeline shared by the commands.
type components struct {
	cfg      *config.Config
	settings *settings.Store
	client   *http.Client
	loader   *answers.Loader
	sessions *answers.SessionService
	closers  []func()
}

// newComponents opens the cache and builds the loader and session service.
// Shutdown must be called even when an error is returned.
func newComponents(ctx context.Context, st *cliState, logger *zap.Logger) (*components, error) {
	c := &components{cfg: st.cfg, settings: st.settings}

	clientCfg := network.NewDefaultClientConfig()
	clientCfg.RequestTimeout = st.cfg.Answers().Timeout
	clientCfg.Logger = logger
	c.client = network.NewClient(clientCfg)

	cache, closeCache, err := store.OpenCache(ctx, st.cfg, logger)
	if err != nil {
		return c, fmt.Errorf("failed to open answer cache: %w", err)
	}
	c.closers = append(c.closers, closeCache)

	source, err := answers.SelectSource(st.cfg.Answers(), answers.Deps{Client: c.client, Cache: cache, Logger: logger})
	if err != nil {
		return c, err
	}
	logger.Info("Answer source selected", zap.String("source", source.Name()))

	c.loader = answers.NewLoader(source, cache, logger)
	c.sessions = answers.NewSessionService(st.cfg.Answers(), c.client, st.settings, logger)
	return c, nil
}

// sessionID is the active session: the saved setting if one was created
// while running, else the configured one.
func (c *components) sessionID() string {
	if id := c.settings.Get().SessionID; id != "" {
		return id
	}
	return c.cfg.Answers().SessionID
}

func (c *components) newServer(logger *zap.Logger) (*service.Server, error) {
	return service.New(service.Deps{
		Answers:  c.loader,
		Sessions: c.sessions,
		Settings: c.settings,
		Version:  Version,
	}, logger)
}

// Shutdown releases everything newComponents opened, in reverse order.
func (c *components) Shutdown() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
