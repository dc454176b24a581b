package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/acodispatch/app"
	"github.com/kilianp07/acodispatch/config"
	"github.com/kilianp07/acodispatch/core/dispatch"
	"github.com/kilianp07/acodispatch/infra/logger"
	"github.com/kilianp07/acodispatch/pkg/export"
)

var (
	cfgPath      string
	scenarioPath string
	reportPath   string
	horizon      int
)

var rootCmd = &cobra.Command{
	Use:          "acodispatch",
	Short:        "Simulate fuel delivery dispatch with ant colony route planning",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario file, overrides the configured one")
	rootCmd.Flags().StringVarP(&reportPath, "report", "r", "", "write the run report to this .json or .csv file")
	rootCmd.Flags().IntVar(&horizon, "horizon", 0, "simulated minutes, overrides the configured horizon")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if scenarioPath != "" {
		cfg.Scenario = scenarioPath
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if horizon > 0 {
		cfg.Simulation.HorizonMinutes = horizon
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	rep, runErr := svc.Run(ctx)
	if reportPath != "" {
		if err := export.WriteFile(reportPath, rep); err != nil {
			return errors.Join(runErr, fmt.Errorf("write report: %w", err))
		}
	}
	printSummary(cmd, rep)
	return runErr
}

func printSummary(cmd *cobra.Command, rep dispatch.Report) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "run %s: %d minutes, %d delivered, %d discarded, %d open\n",
		rep.RunID, rep.Minutes, rep.Delivered, rep.Discarded, rep.Open)
	_, _ = fmt.Fprintf(out, "avg slack %.1f min (sd %.1f), fuel %.2f, distance %d\n",
		rep.AvgSlack, rep.SlackStdDev, rep.TotalFuel, rep.TotalDistance)
	if rep.Collapsed {
		_, _ = fmt.Fprintf(out, "collapsed on order %s\n", rep.CollapseOrderID)
	}
}
