package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/server"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/providers/history"
)

func newHistoryCmd(flags *flagValues) *cobra.Command {
	var (
		limit  int
		filter string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded commands as JSON, newest first",
		Example: `  shell-server history --limit 20
  shell-server history --filter git`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			path, err := server.HistoryPath(cfg.History)
			if err != nil {
				return err
			}
			store, err := history.Open(path, history.Options{})
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Query(cmd.Context(), history.Query{Limit: limit, Filter: filter})
			if err != nil {
				return err
			}

			out, err := history.Render(entries)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "number of entries to show (max 1000)")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only show commands containing this text")
	return cmd
}
