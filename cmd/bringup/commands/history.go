package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bringup/bringup/pkg/config"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past provisioning runs",
		Long: `List recent provisioning runs from the local run database, newest
first. With a run ID, show that run's phase transitions instead.`,
		Example: `  # Last 20 runs
  bringup history

  # Phase-by-phase record of one run
  bringup history 3f2c9a1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			store, err := openHistory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 1 {
				phases, err := store.ListPhases(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(phases) == 0 {
					fmt.Println("No phases recorded for that run.")
					return nil
				}

				fmt.Fprintln(w, "TIMESTAMP\tPHASE\tSTATUS\tERROR")
				for _, p := range phases {
					errMsg := ""
					if p.Error != nil {
						errMsg = *p.Error
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						p.Timestamp.Format("2006-01-02 15:04:05"), p.Phase, p.Status, errMsg)
				}
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}

			fmt.Fprintln(w, "RUN\tSTATUS\tSTARTED\tCOMPLETED\tERROR")
			for _, r := range runs {
				completed := "-"
				if r.CompletedAt != nil {
					completed = r.CompletedAt.Format("2006-01-02 15:04:05")
				}
				errMsg := ""
				if r.Error != nil {
					errMsg = *r.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"), completed, errMsg)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	return cmd
}
