package main

import (
	"github.com/spf13/cobra"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/config"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/store"
)

func newRunsCmd() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the stored run audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			runStore, err := store.Open(cfg.Store.DatabasePath)
			if err != nil {
				return err
			}
			defer runStore.Close()

			if runID != "" {
				steps, err := runStore.ListSteps(cmd.Context(), runID)
				if err != nil {
					return err
				}
				for _, s := range steps {
					marker := ""
					if s.FreeRetry {
						marker = " [free retry]"
					}
					cmd.Printf("step %d: %s%s\n", s.Index, s.Status, marker)
					if verbose {
						cmd.Printf("%s\n\n", s.Source)
					}
				}
				return nil
			}

			records, err := runStore.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range records {
				cmd.Printf("%s  %-10s %-16s steps=%d consumed=%d  %s\n",
					r.ID, r.Domain, r.Status, r.Steps, r.Consumed,
					r.Started.Format("2006-01-02 15:04:05"))
				if r.Error != "" {
					cmd.Printf("    error: %s\n", r.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show the steps of one run")
	return cmd
}
