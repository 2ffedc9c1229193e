package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depresolve/pkg/store"
)

// reportsCommand creates the reports command.
func (c *CLI) reportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List and show saved reports",
	}
	cmd.AddCommand(c.reportsListCommand())
	cmd.AddCommand(c.reportsShowCommand())
	return cmd
}

func (c *CLI) reportsListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close(ctx)

			entries, err := st.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo(c.Out, "No saved reports")
				return nil
			}
			fmt.Fprintln(c.Out, reportTable(toRows(entries), time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "maximum number of reports")
	return cmd
}

func (c *CLI) reportsShowCommand() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close(ctx)

			rep, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			// Saved reports carry no tree; dot and svg are unavailable.
			return c.present(ctx, out, rep, nil, true)
		},
	}
	out.register(cmd)
	return cmd
}

func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}

func toRows(entries []store.Entry) []reportEntry {
	rows := make([]reportEntry, len(entries))
	for i, e := range entries {
		rows[i] = reportEntry{
			ID:         e.ID,
			Root:       e.Root,
			CreatedAt:  e.CreatedAt,
			Components: e.Summary.Components,
			Resolved:   e.Summary.Resolved,
			Failed:     e.Summary.Failed,
		}
	}
	return rows
}
