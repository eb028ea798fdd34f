// File: cmd/answers.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/observability"
)

func newAnswersCmd() *cobra.Command {
	var (
		session string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "answers",
		Short: "Load the questionnaire answers and print them in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := stateFrom(cmd)
			if err != nil {
				return err
			}
			if session != "" {
				st.cfg.SetAnswersSessionID(session)
			}
			logger := observability.GetLogger()

			comps, err := newComponents(cmd.Context(), st, logger)
			defer comps.Shutdown()
			if err != nil {
				return err
			}

			res := comps.loader.Load(cmd.Context(), comps.sessionID())
			logger.Info("Answers loaded",
				zap.String("origin", string(res.Origin)),
				zap.Int("count", res.Answers.Len()))

			out := cmd.OutOrStdout()
			if asJSON {
				b, err := res.Answers.MarshalJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(b))
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			res.Answers.Range(func(key, answer string) bool {
				fmt.Fprintf(tw, "%s\t%s\n", key, answer)
				return true
			})
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "questionnaire session id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON object instead of a table")
	return cmd
}
