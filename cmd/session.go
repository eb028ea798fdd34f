// File: cmd/session.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/visa-autofill/internal/observability"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage questionnaire sessions",
	}

	var userID string
	create := &cobra.Command{
		Use:   "create --user ID",
		Short: "Create a session and make it the active one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := stateFrom(cmd)
			if err != nil {
				return err
			}
			comps, err := newComponents(cmd.Context(), st, observability.GetLogger())
			defer comps.Shutdown()
			if err != nil {
				return err
			}

			id, err := comps.sessions.CreateSession(cmd.Context(), userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	create.Flags().StringVar(&userID, "user", "", "user id to create the session for")
	_ = create.MarkFlagRequired("user")

	cmd.AddCommand(create)
	return cmd
}
