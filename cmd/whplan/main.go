// Command whplan drives LLM-generated warehouse-planning formulations
// through a generate, verify, refine loop until they satisfy the domain's
// constraints.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/config"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/domain"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
)

var (
	logger    *zap.Logger
	verbose   bool
	workspace string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "whplan",
		Short:         "Verified LLM formulation of warehouse planning problems",
		Long:          "whplan asks an LLM for a logic-program formulation of an automated-warehouse\nplanning task, verifies it against the domain's constraints with a symbolic\noracle, and feeds violations back until the formulation is provably correct\nor the iteration budget runs out.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zcfg := zap.NewProductionConfig()
			if verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}

			if workspace == "" {
				if workspace, err = os.Getwd(); err != nil {
					return fmt.Errorf("resolve workspace: %w", err)
				}
			}
			if err := logging.Initialize(workspace); err != nil {
				logger.Warn("file logging unavailable", zap.Error(err))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
			logging.CloseAll()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	cmd.PersistentFlags().StringVar(&workspace, "workspace", "", "workspace directory (default: cwd)")

	cmd.AddCommand(newSolveCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newRunsCmd())
	return cmd
}

// loadDomain resolves the domain to work on: a YAML file when given, the
// built-in warehouse instance otherwise.
func loadDomain(path string) (*domain.Domain, error) {
	if path == "" {
		return domain.Warehouse(), nil
	}
	return domain.LoadFile(path)
}

// loadConfig reads workspace config and applies command-line overrides.
func loadConfig(iterations int, mode string) (*config.Config, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	if iterations > 0 {
		cfg.Refine.MaxIterations = iterations
	}
	if mode != "" {
		cfg.Refine.ConvergenceMode = mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
