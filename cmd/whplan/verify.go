package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/config"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/feedback"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/formulation"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/oracle"
	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/verify"
)

func newVerifyCmd() *cobra.Command {
	var (
		domainPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "verify <formulation-file>",
		Short: "Verify a formulation file against the domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			dom, err := loadDomain(domainPath)
			if err != nil {
				return err
			}
			evalTimeout, err := cfg.EvalTimeout()
			if err != nil {
				return err
			}
			verifier := verify.New(oracle.NewEngine(oracle.Config{
				EvalTimeout: evalTimeout,
				FactLimit:   cfg.Oracle.FactLimit,
			}), dom)

			if watch {
				return watchFile(cmd, verifier, path)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			report := verifier.Verify(cmd.Context(), formulation.New(string(data), 0))
			cmd.Print(feedback.FormatReport(report))
			if !report.Valid() {
				return fmt.Errorf("formulation is %s", report.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domainPath, "domain", "", "domain definition YAML (default: built-in warehouse)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-verify on every file change")
	return cmd
}

func watchFile(cmd *cobra.Command, verifier *verify.Verifier, path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := verify.NewWatcher(verifier, path, func(report verify.Report) {
		cmd.Print(feedback.FormatReport(report))
	})
	if err != nil {
		return err
	}

	cmd.Printf("watching %s (ctrl-c to stop)\n", path)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
