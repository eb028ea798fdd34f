// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/autofill"
	"github.com/xkilldash9x/visa-autofill/internal/browser/cdp"
	"github.com/xkilldash9x/visa-autofill/internal/observability"
)

func newRunCmd() *cobra.Command {
	var (
		targetURL string
		listen    string
		session   string
		headless  bool
		noAdvance bool
	)

	cmd := &cobra.Command{
		Use:   "run --url URL",
		Short: "Open the portal in Chrome and fill each form page as it appears",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := stateFrom(cmd)
			if err != nil {
				return err
			}
			if session != "" {
				st.cfg.SetAnswersSessionID(session)
			}
			if cmd.Flags().Changed("headless") {
				st.cfg.SetBrowserHeadless(headless)
			}
			if noAdvance {
				st.cfg.SetAutofillAutoAdvance(false)
			}
			return runLive(cmd.Context(), st, targetURL, listen)
		},
	}

	cmd.Flags().StringVar(&targetURL, "url", "", "page to open")
	cmd.Flags().StringVar(&listen, "listen", "", "also serve the local API on this address")
	cmd.Flags().StringVar(&session, "session", "", "questionnaire session id")
	cmd.Flags().BoolVar(&headless, "headless", false, "run Chrome without a window")
	cmd.Flags().BoolVar(&noAdvance, "no-advance", false, "fill pages but never click Next")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func runLive(ctx context.Context, st *cliState, targetURL, listen string) error {
	logger := observability.GetLogger()

	comps, err := newComponents(ctx, st, logger)
	defer comps.Shutdown()
	if err != nil {
		return err
	}

	browser, err := cdp.Launch(ctx, st.cfg.Browser(), logger)
	if err != nil {
		return err
	}
	defer browser.Close()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return err
	}
	if err := page.Navigate(ctx, targetURL); err != nil {
		return err
	}

	controller, err := autofill.NewController(page, st.cfg.Autofill(), logger)
	if err != nil {
		return err
	}

	refresher := answers.NewRefresher(comps.loader, comps.sessionID, st.cfg.Answers().RefreshInterval, logger)
	refresher.Subscribe(controller.SetAnswers)
	// Load before the observer's first trigger can start a pass.
	refresher.Refresh(ctx)

	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start autofill: %w", err)
	}
	defer controller.Dispose()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return refresher.Run(gctx) })
	if listen != "" {
		srv, err := comps.newServer(logger)
		if err != nil {
			return err
		}
		srv.Attach(controller)
		g.Go(func() error { return srv.ListenAndServe(gctx, listen) })
	}

	logger.Info("Autofill running; press Ctrl+C to stop",
		zap.String("url", targetURL),
		zap.String("session_id", comps.sessionID()))

	<-gctx.Done()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Autofill stopped")
	return nil
}
