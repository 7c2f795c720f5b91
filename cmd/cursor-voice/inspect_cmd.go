package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattjoyce/cursor-voice/internal/history"
	"github.com/mattjoyce/cursor-voice/internal/inspect"
	"github.com/mattjoyce/cursor-voice/internal/storage"
)

func newInspectCmd(flags *globalFlags) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "inspect [session-id]",
		Short: "Report the commands of one listening session",
		Long: `Read the command history database directly and report one listening session:
every honored command in order, what was heard and the gap since the previous
command. Without a session ID the most recent session is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if !cfg.History.IsEnabled() {
				return fmt.Errorf("history is disabled in %s", cfg.Path)
			}

			db, err := storage.OpenSQLite(cmd.Context(), cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer db.Close()
			store := history.NewStore(db, 0)

			var sessionID string
			if len(args) == 1 {
				sessionID = args[0]
			}

			var out string
			if jsonOut {
				out, err = inspect.BuildJSONReport(cmd.Context(), store, sessionID)
			} else {
				out, err = inspect.BuildReport(cmd.Context(), store, sessionID)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			if jsonOut {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output the report as JSON")
	return cmd
}
