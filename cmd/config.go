// File: cmd/config.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/visa-autofill/internal/settings"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change the saved settings (" + strings.Join(settings.Keys(), ", ") + ")",
	}

	get := &cobra.Command{
		Use:   "get [KEY]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := stateFrom(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				v, err := st.settings.Value(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, v)
				return err
			}
			for _, key := range settings.Keys() {
				v, _ := st.settings.Value(key)
				if key == settings.KeyAPIKey && v != "" {
					v = maskSecret(v)
				}
				fmt.Fprintf(out, "%s=%s\n", key, v)
			}
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Save a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := stateFrom(cmd)
			if err != nil {
				return err
			}
			if err := st.settings.Set(args[0], args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s to %s\n", args[0], st.settings.Path())
			return err
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
