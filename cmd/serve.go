// File: cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/visa-autofill/internal/observability"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local API without a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := stateFrom(cmd)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = st.cfg.Service().ListenAddr
			}
			logger := observability.GetLogger()

			comps, err := newComponents(cmd.Context(), st, logger)
			defer comps.Shutdown()
			if err != nil {
				return err
			}
			srv, err := comps.newServer(logger)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default service.listen_addr)")
	return cmd
}
