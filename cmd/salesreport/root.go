package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"salespulse/internal/app"
	"salespulse/internal/config"
	"salespulse/internal/infrastructure"
	"salespulse/internal/services"
)

// environment is shared by every subcommand. Services are built on first
// use so that commands like version never touch the dataset.
type environment struct {
	configPath  string
	datasetPath string
	debug       bool

	cfg      *config.Config
	logger   *slog.Logger
	services *app.ServiceContainer
}

func newRootCommand() *cobra.Command {
	env := &environment{}

	cmd := &cobra.Command{
		Use:          "salesreport",
		Short:        "Query the sales dataset from the command line",
		Long:         `Compute KPIs, preview filtered rows, generate insight narratives and export reports from a sales CSV or XLSX export.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&env.configPath, "config", "", "config file (default is ./config.yaml or configs/config.yaml)")
	flags.StringVar(&env.datasetPath, "dataset", "", "sales CSV or XLSX file (overrides dataset.path)")
	flags.BoolVar(&env.debug, "debug", false, "log at debug level to stderr")

	cmd.AddCommand(
		newKPIsCommand(env),
		newFilterCommand(env),
		newInsightsCommand(env),
		newExportCommand(env),
		newDatasetCommand(env),
		newVersionCommand(),
	)
	return cmd
}

// sales returns the sales service, building it on first call.
func (e *environment) sales(cmd *cobra.Command) (*services.SalesService, error) {
	if e.services != nil {
		return e.services.Sales, nil
	}

	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if e.datasetPath != "" {
		cfg.Dataset.Path = config.ResolvePath(e.datasetPath)
	}

	// Log to stderr only; stdout carries the report.
	logCfg := config.LoggingConfig{Level: "warn", Output: "console"}
	if e.debug {
		logCfg.Level = "debug"
	}
	logger, _, err := infrastructure.NewLogger(logCfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	e.cfg = cfg
	e.logger = logger
	e.services = app.BuildServices(cfg, logger, nil)
	return e.services.Sales, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", config.AppName, config.AppVersion)
		},
	}
}
