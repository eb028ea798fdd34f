// File: cmd/fill.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/answers"
	"github.com/xkilldash9x/visa-autofill/internal/autofill"
	"github.com/xkilldash9x/visa-autofill/internal/browser/dom"
	"github.com/xkilldash9x/visa-autofill/internal/observability"
)

type fillOptions struct {
	output      string
	session     string
	answersFile string
	pageURL     string
	advance     bool
}

func newFillCmd() *cobra.Command {
	var opts fillOptions

	cmd := &cobra.Command{
		Use:   "fill FILE.html",
		Short: "Run one fill pass over a saved form page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := stateFrom(cmd)
			if err != nil {
				return err
			}
			if opts.session != "" {
				st.cfg.SetAnswersSessionID(opts.session)
			}
			return runFill(cmd.Context(), st, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "where to write the filled page (default FILE.filled.html)")
	cmd.Flags().StringVar(&opts.session, "session", "", "questionnaire session id")
	cmd.Flags().StringVar(&opts.answersFile, "answers", "", "read answers from this JSON file instead of the configured source")
	cmd.Flags().StringVar(&opts.pageURL, "page-url", "", "URL the page was saved from, used to pick the event profile")
	cmd.Flags().BoolVar(&opts.advance, "advance", false, "record the Next click when nothing required is left empty")
	return cmd
}

func runFill(ctx context.Context, st *cliState, path string, opts fillOptions, out io.Writer) error {
	logger := observability.GetLogger()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	doc, err := dom.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	m, err := loadFillAnswers(ctx, st, opts, logger)
	if err != nil {
		return err
	}

	cfg := st.cfg.Autofill()
	cfg.AutoAdvance = opts.advance
	// Nothing settles on a static page.
	cfg.Delays.ScrollSettle = 0
	cfg.Delays.PostClickSettle = 0
	cfg.Delays.StablePoll = 0

	page := autofill.NewStaticPage(doc, opts.pageURL, logger)
	controller, err := autofill.NewController(page, cfg, logger)
	if err != nil {
		return err
	}
	controller.SetAnswers(m)

	summary, err := controller.RunPass(ctx)
	if err != nil {
		return fmt.Errorf("fill pass failed: %w", err)
	}

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + ".filled.html"
	}
	if err := writeDocument(output, page.Document()); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", summary.Status)
	fmt.Fprintf(out, "questions: %d  matched: %d  %s\n", summary.Questions, summary.Matched, summary.FillSummary.String())
	fmt.Fprintf(out, "empty required: %d  advanced: %t\n", summary.EmptyRequired, summary.Advanced)
	fmt.Fprintf(out, "wrote %s\n", output)
	return nil
}

func loadFillAnswers(ctx context.Context, st *cliState, opts fillOptions, logger *zap.Logger) (*answers.Map, error) {
	if opts.answersFile != "" {
		data, err := os.ReadFile(opts.answersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read answers: %w", err)
		}
		m, err := answers.DecodeBody(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", opts.answersFile, err)
		}
		return m, nil
	}

	comps, err := newComponents(ctx, st, logger)
	defer comps.Shutdown()
	if err != nil {
		return nil, err
	}
	return comps.loader.LoadAnswers(ctx, comps.sessionID()), nil
}

func writeDocument(path string, doc *dom.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := doc.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
