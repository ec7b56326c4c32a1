package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/refine"
)

func newBatchCmd() *cobra.Command {
	var (
		domainPath string
		runs       int
		parallel   int
		iterations int
		mode       string
		noStore    bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run several independent refinement runs and report the convergence rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(iterations, mode)
			if err != nil {
				return err
			}
			dom, err := loadDomain(domainPath)
			if err != nil {
				return err
			}

			// A controller holds no per-run state, so all runs can share
			// one; each Run call produces an independent history.
			ctrl, cleanup, err := buildController(ctx, cfg, dom, noStore)
			if err != nil {
				return err
			}
			defer cleanup()

			results, sum := refine.RunBatch(ctx, runs, parallel, func(int) *refine.Controller {
				return ctrl
			})

			for _, res := range results {
				cmd.Printf("run %s: %s (%d steps)\n", res.ID, res.Status, len(res.Steps))
			}
			cmd.Printf("\n%d/%d converged (%d exhausted, %d aborted)\n",
				sum.Converged, sum.Runs, sum.Exhausted, sum.Aborted)

			if sum.Converged == 0 {
				return fmt.Errorf("no run converged")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domainPath, "domain", "", "domain definition YAML (default: built-in warehouse)")
	cmd.Flags().IntVar(&runs, "runs", 3, "number of independent runs")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 2, "maximum concurrent runs")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "override iteration budget per run")
	cmd.Flags().StringVar(&mode, "mode", "", "feedback mode: binary or structured-feedback")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable the run audit trail")
	return cmd
}
