package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depresolve/internal/server"
	"github.com/matzehuels/depresolve/pkg/store"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolve and collect API over HTTP",
		Example: `  depresolve serve --addr :8080
  curl -d '{"coordinates":["org.slf4j:slf4j-api:2.0.13"]}' localhost:8080/v1/resolve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			st, err := store.Open(ctx, e.cfg.Store)
			if err != nil {
				c.Logger.Warn("report store unavailable, saving disabled", "backend", e.cfg.Store.Backend, "error", err)
				st = nil
			} else {
				defer st.Close(context.WithoutCancel(ctx))
			}

			srv := server.New(server.Options{
				System:  e.sys,
				Session: e.sess,
				Store:   st,
				Logger:  c.Logger,
				Timeout: e.cfg.Resolve.Timeout,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	return cmd
}
