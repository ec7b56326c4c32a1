package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/config"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/domain"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/feedback"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/generator"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/oracle"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/refine"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/store"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/verify"
)

func newSolveCmd() *cobra.Command {
	var (
		domainPath string
		outPath    string
		iterations int
		mode       string
		noStore    bool
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run the refinement loop until a verified formulation is found",
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

			ctrl, cleanup, err := buildController(ctx, cfg, dom, noStore)
			if err != nil {
				return err
			}
			defer cleanup()

			res := ctrl.Run(ctx)
			printResult(cmd, res)

			switch res.Status {
			case refine.StatusConverged:
				if outPath != "" {
					final := res.Final()
					if err := os.WriteFile(outPath, []byte(final.SourceText+"\n"), 0644); err != nil {
						return fmt.Errorf("write %s: %w", outPath, err)
					}
					cmd.Printf("verified formulation written to %s\n", outPath)
				}
				return nil
			case refine.StatusAborted:
				return fmt.Errorf("run aborted: %w", res.Err)
			default:
				return fmt.Errorf("no valid formulation within %d iterations", cfg.Refine.MaxIterations)
			}
		},
	}

	cmd.Flags().StringVar(&domainPath, "domain", "", "domain definition YAML (default: built-in warehouse)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the converged formulation to this file")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "override iteration budget")
	cmd.Flags().StringVar(&mode, "mode", "", "feedback mode: binary or structured-feedback")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable the run audit trail")
	return cmd
}

// buildController wires generator, verifier and recorder from config.
// The returned cleanup closes whatever was opened.
func buildController(ctx context.Context, cfg *config.Config, dom *domain.Domain, noStore bool) (*refine.Controller, func(), error) {
	evalTimeout, err := cfg.EvalTimeout()
	if err != nil {
		return nil, nil, err
	}
	engine := oracle.NewEngine(oracle.Config{
		EvalTimeout: evalTimeout,
		FactLimit:   cfg.Oracle.FactLimit,
	})
	verifier := verify.New(engine, dom)

	gen, err := generator.NewGemini(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	if cfg.LLM.Calibrate {
		if err := gen.Calibrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("calibration: %w", err)
		}
	}

	cleanup := func() {}
	var rec refine.Recorder
	if cfg.Store.Enabled && !noStore {
		runStore, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			logger.Warn("run store unavailable, continuing without audit trail", zap.Error(err))
		} else {
			rec = runStore
			cleanup = func() { runStore.Close() }
		}
	}

	stepTimeout, err := cfg.StepTimeout()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	fbMode, err := feedback.ParseMode(cfg.Refine.ConvergenceMode)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	ctrl := refine.New(dom, gen, verifier, rec, refine.Options{
		MaxIterations:             cfg.Refine.MaxIterations,
		StepTimeout:               stepTimeout,
		Mode:                      fbMode,
		OracleFaultConsumesBudget: cfg.OracleFaultConsumesBudget(),
	})
	return ctrl, cleanup, nil
}

func printResult(cmd *cobra.Command, res refine.Result) {
	cmd.Printf("run %s: %s (%d steps, %d consumed, %v)\n",
		res.ID, res.Status, len(res.Steps), res.ConsumedIterations(),
		res.Finished.Sub(res.Started).Round(0))

	for _, step := range res.Steps {
		marker := ""
		if step.FreeRetry {
			marker = " [free retry]"
		}
		cmd.Printf("  step %d: %s%s\n", step.Index, step.Report.Status, marker)
		if verbose {
			for _, v := range step.Report.Violations {
				cmd.Printf("    - %s\n", v.Message)
			}
		}
	}

	if final := res.Final(); final != nil {
		cmd.Printf("\n%s\n", final.SourceText)
	}
}
